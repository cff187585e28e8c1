package flow

import (
	"context"
	"errors"
	"strings"
)

const chatSystem = `You are V-technology or Vtech AI, created by Farel Alfareza.
- You are a helpful assistant.
- You should be able to generate code snippets when asked. Use markdown for code blocks.
- When you generate code, you MUST provide a clear and concise explanation for what the code does.
- If the user provides a file (image), you MUST analyze the image in conjunction with the user's text query to understand their full intent. Your response must be based on both the image and the text.
- Your final output MUST BE a valid JSON object of the form {"response": string}.
- Do not output anything other than the JSON object itself.`

// ChatOutput is the answer of the chat flow.
type ChatOutput struct {
	Response string `json:"response"`
}

// Chat answers a query, optionally looking at an attached image. A
// malformed model answer yields the fixed fallback text; transport errors
// are returned.
func (f *Flows) Chat(ctx context.Context, in Input) (*ChatOutput, error) {
	var out ChatOutput
	err := f.complete(ctx, "chat", chatSystem, in, &out)
	if errors.Is(err, ErrInvalidOutput) || (err == nil && strings.TrimSpace(out.Response) == "") {
		return &ChatOutput{Response: chatFallback}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
