package flow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/internal/llm"
	"github.com/farelProject/v-technology/pkg/logger"
)

type fakeClient struct {
	content string
	err     error
	last    *llm.CompletionRequest
}

func (c *fakeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content, Model: "fake-1"}, nil
}

func (c *fakeClient) Name() string     { return "fake" }
func (c *fakeClient) Models() []string { return []string{"fake-1"} }

type fakeImages struct {
	uri string
	err error
}

func (g *fakeImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return g.uri, g.err
}

func (g *fakeImages) Name() string { return "fake" }

func newFlows(client llm.Client, images llm.ImageGenerator, cfg Config) *Flows {
	return New(client, images, cfg, logger.NewNop())
}

func TestChat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    string
		wantErr bool
	}{
		{"plain JSON", `{"response":"Hello!"}`, nil, "Hello!", false},
		{"fenced JSON", "```json\n{\"response\":\"Fenced\"}\n```", nil, "Fenced", false},
		{"chatter around JSON", `Sure! {"response":"Inside"} hope that helps`, nil, "Inside", false},
		{"not JSON", "just text", nil, chatFallback, false},
		{"empty response field", `{"response":""}`, nil, chatFallback, false},
		{"transport error", "", errors.New("503 overloaded"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlows(&fakeClient{content: tt.content, err: tt.err}, nil, Config{})
			out, err := f.Chat(context.Background(), Input{Query: "hi"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Response)
		})
	}
}

func TestChatSendsAttachment(t *testing.T) {
	client := &fakeClient{content: `{"response":"a cat"}`}
	f := newFlows(client, nil, Config{})

	_, err := f.Chat(context.Background(), Input{Query: "what is it", File: "data:image/png;base64,aGVsbG8="})
	require.NoError(t, err)

	require.Len(t, client.last.Messages, 1)
	require.Len(t, client.last.Messages[0].Attachments, 1)
	assert.Equal(t, "image/png", client.last.Messages[0].Attachments[0].MIMEType)
	assert.True(t, client.last.JSON)
	assert.Contains(t, client.last.System, "Vtech AI")
}

func TestChatRejectsBadFile(t *testing.T) {
	f := newFlows(&fakeClient{content: `{"response":"x"}`}, nil, Config{})
	_, err := f.Chat(context.Background(), Input{Query: "q", File: "not-a-data-uri"})
	assert.Error(t, err)
}

func TestWebSearch(t *testing.T) {
	links := WebSearch("go lang")
	require.Len(t, links, 5)
	assert.Equal(t, "Google: go lang", links[0].Title)
	assert.Equal(t, "https://google.com/search?q=go+lang", links[0].Link)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Special:Search?search=go+lang", links[3].Link)
	assert.Equal(t, "https://search.yahoo.com/search?p=go+lang", links[4].Link)
}

func TestChatWithSearch(t *testing.T) {
	client := &fakeClient{content: `{"response":"Here are the search results for your query.","searchResults":[
		{"title":"Google","description":"Search giant","link":"https://google.com/search?q=golang"},
		{"title":"x","description":"second","link":"https://example.com/made-up"}
	]}`}
	f := newFlows(client, nil, Config{})

	out, err := f.ChatWithSearch(context.Background(), Input{Query: "golang"})
	require.NoError(t, err)
	require.Len(t, out.SearchResults, 5)
	assert.Equal(t, "Google: golang", out.SearchResults[0].Title)
	assert.Equal(t, "Search giant", out.SearchResults[0].Description)
	assert.Equal(t, "second", out.SearchResults[1].Description)
	assert.Empty(t, out.SearchResults[4].Description)
	assert.Contains(t, client.last.Messages[0].Content, "webSearch results")
}

func TestChatWithSearchUsesSearchTerms(t *testing.T) {
	client := &fakeClient{content: `{"response":"ok","searchResults":[]}`}
	f := newFlows(client, nil, Config{})

	out, err := f.ChatWithSearch(context.Background(), Input{
		Query:       "AI Style: Cheerful, AI Model: General Assistant.\n\nQuery: golang generics",
		SearchTerms: "golang generics",
	})
	require.NoError(t, err)
	require.Len(t, out.SearchResults, 5)
	assert.Equal(t, "Google: golang generics", out.SearchResults[0].Title)
	assert.Equal(t, "https://google.com/search?q=golang+generics", out.SearchResults[0].Link)
	for _, r := range out.SearchResults {
		assert.NotContains(t, r.Link, "Style")
	}
	assert.Contains(t, client.last.Messages[0].Content, "AI Style: Cheerful")
}

func TestChatWithSearchFallback(t *testing.T) {
	f := newFlows(&fakeClient{content: "oops"}, nil, Config{})
	out, err := f.ChatWithSearch(context.Background(), Input{Query: "golang"})
	require.NoError(t, err)
	assert.Equal(t, searchFallback, out.Response)
	assert.NotNil(t, out.SearchResults)
	assert.Empty(t, out.SearchResults)
}

func TestGenerateImage(t *testing.T) {
	placeholder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer placeholder.Close()

	t.Run("provider image", func(t *testing.T) {
		f := newFlows(&fakeClient{}, &fakeImages{uri: "data:image/png;base64,AAA"}, Config{PlaceholderURL: placeholder.URL})
		out := f.GenerateImage(context.Background(), "a cat")
		assert.Equal(t, "data:image/png;base64,AAA", out.ImageURL)
		assert.False(t, out.Placeholder)
	})

	t.Run("provider failure uses placeholder", func(t *testing.T) {
		f := newFlows(&fakeClient{}, &fakeImages{err: llm.ErrNoImage}, Config{PlaceholderURL: placeholder.URL})
		out := f.GenerateImage(context.Background(), "a cat")
		assert.Equal(t, "data:image/png;base64,cG5n", out.ImageURL)
		assert.True(t, out.Placeholder)
	})

	t.Run("no generator and placeholder down", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer down.Close()

		f := newFlows(&fakeClient{}, nil, Config{PlaceholderURL: down.URL})
		out := f.GenerateImage(context.Background(), "a cat")
		assert.Equal(t, down.URL, out.ImageURL)
	})
}

func TestYoutubeAudio(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		ok     bool
	}{
		{"found", 200, `{"result":{"title":"Song","thumb":"https://img/t.jpg","url":"https://audio/s.mp3"}}`, "", true},
		{"api message", 200, `{"message":"quota exceeded"}`, "quota exceeded", false},
		{"no result", 200, `{}`, "Could not find audio for this query.", false},
		{"http error", 500, `{}`, "Failed to fetch from API.", false},
		{"bad json", 200, `<html>`, "An unexpected error occurred.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query().Get("query")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := newFlows(&fakeClient{}, nil, Config{YTPlayURL: srv.URL + "/api/search/ytplay"})
			res := f.YoutubeAudio(context.Background(), "never gonna")

			assert.Equal(t, "never gonna", gotQuery)
			assert.Equal(t, tt.ok, res.Success)
			if tt.ok {
				assert.Equal(t, "Song", res.Title)
				assert.Equal(t, "https://img/t.jpg", res.ImageURL)
				assert.Equal(t, "https://audio/s.mp3", res.AudioURL)
			} else {
				assert.Equal(t, tt.want, res.Message)
			}
		})
	}
}

func TestYoutubeAudioUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := newFlows(&fakeClient{}, nil, Config{YTPlayURL: srv.URL})
	res := f.YoutubeAudio(context.Background(), "q")
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "An unexpected"))
}
