package flow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/model"
)

type ytplayResponse struct {
	Message string `json:"message"`
	Result  *struct {
		Title string `json:"title"`
		Thumb string `json:"thumb"`
		URL   string `json:"url"`
	} `json:"result"`
}

// YoutubeAudio looks up a playable audio track for query. Failures are
// reported in the result, never as an error.
func (f *Flows) YoutubeAudio(ctx context.Context, query string) model.AudioResult {
	endpoint, err := url.Parse(f.ytplayURL)
	if err != nil || f.ytplayURL == "" {
		f.logger.Error("audio lookup is not configured", zap.String("url", f.ytplayURL))
		return model.AudioResult{Success: false, Message: "An unexpected error occurred."}
	}
	params := endpoint.Query()
	params.Set("query", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return model.AudioResult{Success: false, Message: "An unexpected error occurred."}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		f.logger.Error("audio lookup failed", zap.Error(err))
		return model.AudioResult{Success: false, Message: "An unexpected error occurred."}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.AudioResult{Success: false, Message: "Failed to fetch from API."}
	}

	var data ytplayResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		f.logger.Error("audio lookup returned invalid JSON", zap.Error(err))
		return model.AudioResult{Success: false, Message: "An unexpected error occurred."}
	}

	if data.Result != nil && data.Result.URL != "" {
		return model.AudioResult{
			Success:  true,
			Title:    data.Result.Title,
			ImageURL: data.Result.Thumb,
			AudioURL: data.Result.URL,
		}
	}

	msg := data.Message
	if msg == "" {
		msg = "Could not find audio for this query."
	}
	return model.AudioResult{Success: false, Message: msg}
}
