package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/farelProject/v-technology/internal/model"
)

const searchSystem = `You are V-technology or Vtech AI, created by Farel Alfareza.
- You are a helpful assistant.
- You can generate code snippets when asked. Use markdown for code blocks.
- If the user provides a file (image), you MUST analyze the image in conjunction with the user's text query to understand their full intent. Your response must be based on both the image and the text.
- You are given the results of a web search for the query.
- You MUST generate a new, insightful description for EACH of the 5 search results.
- Your final output MUST BE a valid JSON object of the form {"response": string, "searchResults": [{"title": string, "description": string, "link": string}]}.
- The 'response' field should be a single, short introductory sentence like "Here are the search results for your query." or an answer based on the context. The response can contain markdown, including code blocks.
- The 'searchResults' field must contain an array of 5 objects, each with a title, the AI-generated description, and a link.
- Do not output anything other than the JSON object itself.`

// SearchOutput is the answer of the search flow.
type SearchOutput struct {
	Response      string               `json:"response"`
	SearchResults []model.SearchResult `json:"searchResults"`
}

// WebSearch returns the search links offered for query. Descriptions are
// left for the model to write.
func WebSearch(query string) []model.SearchResult {
	q := url.QueryEscape(query)
	return []model.SearchResult{
		{Title: "Google: " + query, Link: "https://google.com/search?q=" + q},
		{Title: "Bing: " + query, Link: "https://bing.com/search?q=" + q},
		{Title: "DuckDuckGo: " + query, Link: "https://duckduckgo.com/?q=" + q},
		{Title: "Wikipedia: " + query, Link: "https://en.wikipedia.org/wiki/Special:Search?search=" + q},
		{Title: "Yahoo: " + query, Link: "https://search.yahoo.com/search?p=" + q},
	}
}

// ChatWithSearch answers a query alongside five described search links.
func (f *Flows) ChatWithSearch(ctx context.Context, in Input) (*SearchOutput, error) {
	terms := strings.TrimSpace(in.SearchTerms)
	if terms == "" {
		terms = in.Query
	}
	links := WebSearch(terms)
	toolOutput, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}

	prompt := in
	prompt.Query = in.Query + "\n\nwebSearch results:\n" + string(toolOutput)

	var out SearchOutput
	err = f.complete(ctx, "search", searchSystem, prompt, &out)
	if errors.Is(err, ErrInvalidOutput) || (err == nil && strings.TrimSpace(out.Response) == "") {
		return &SearchOutput{Response: searchFallback, SearchResults: []model.SearchResult{}}, nil
	}
	if err != nil {
		return nil, err
	}

	out.SearchResults = mergeResults(links, out.SearchResults)
	return &out, nil
}

// mergeResults keeps the tool's titles and links authoritative and takes
// the model's description for each, matched by link then by position.
func mergeResults(links, described []model.SearchResult) []model.SearchResult {
	byLink := make(map[string]string, len(described))
	for _, d := range described {
		byLink[d.Link] = d.Description
	}

	out := make([]model.SearchResult, len(links))
	for i, l := range links {
		out[i] = l
		if desc, ok := byLink[l.Link]; ok {
			out[i].Description = desc
		} else if i < len(described) {
			out[i].Description = described[i].Description
		}
	}
	return out
}
