// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blog-autopilot/pkg/types"
)

func TestMain(m *testing.M) {
	retryDelay = time.Millisecond
	os.Exit(m.Run())
}

// --- fakes ---

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func messageJSON(text string) string {
	resp := map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-test",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

// fakeMessagesAPI serves the given statuses in order, then 200 with text.
func fakeMessagesAPI(t *testing.T, text string, statuses ...int) (*httptest.Server, *int32, *[]map[string]any) {
	t.Helper()
	var calls int32
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		w.Header().Set("Content-Type", "application/json")
		if int(n) <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
			return
		}
		fmt.Fprint(w, messageJSON(text))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &bodies
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(types.AIConfig{APIKey: "test-key", BaseURL: baseURL, Model: "claude-test"})
	require.NoError(t, err)
	return c
}

// --- Client ---

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(types.AIConfig{})
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(types.AIConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, int64(4000), c.maxTokens)
	assert.InDelta(t, 0.7, c.temperature, 1e-9)
	assert.Equal(t, 3, c.maxRetries)
}

func TestCompleteSendsParams(t *testing.T) {
	srv, calls, bodies := fakeMessagesAPI(t, "  hello  ")
	c := newTestClient(t, srv.URL)

	got, err := c.Complete(context.Background(), "write something")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 4000, body["max_tokens"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestCompleteRetriesTransientStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"overloaded", 529},
		{"server error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls, _ := fakeMessagesAPI(t, "ok", tt.status)
			c := newTestClient(t, srv.URL)

			got, err := c.Complete(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, int32(2), atomic.LoadInt32(calls))
		})
	}
}

func TestCompleteDoesNotRetryClientError(t *testing.T) {
	srv, calls, _ := fakeMessagesAPI(t, "ok", http.StatusBadRequest)
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	var apiErr *anthropic.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestCompleteGivesUpAfterMaxRetries(t *testing.T) {
	srv, calls, _ := fakeMessagesAPI(t, "ok", 503, 503, 503, 503, 503)
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))
}

func TestCompleteEmptyText(t *testing.T) {
	srv, _, _ := fakeMessagesAPI(t, "   ")
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.True(t, isRetryable(&anthropic.Error{StatusCode: 529}))
	assert.True(t, isRetryable(&anthropic.Error{StatusCode: 429}))
	assert.False(t, isRetryable(&anthropic.Error{StatusCode: 401}))
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n<p>x</p>\n```\n", "<p>x</p>"},
		{"  ```html\n<h2>t</h2>\n<p>b</p>\n```  ", "<h2>t</h2>\n<p>b</p>"},
		{"```", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), "input %q", tt.in)
	}
}

// --- TopicGenerator ---

func TestGenerateParsesTitles(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"object", `{"titles": ["Lo-Fi Drum Mixing", "Sidechain Basics"]}`, []string{"Lo-Fi Drum Mixing", "Sidechain Basics"}},
		{"bare array", `["A", "B"]`, []string{"A", "B"}},
		{"fenced", "```json\n{\"titles\": [\"A\"]}\n```", []string{"A"}},
		{"blank entries dropped", `{"titles": ["  ", " A "]}`, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &TopicGenerator{Completer: &fakeCompleter{reply: tt.reply}}
			got, err := g.Generate(context.Background(), 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateThemesParsesDetails(t *testing.T) {
	reply := "```json\n" + `{"themes": [
		{"title": " Taming Harsh Cymbals ", "target_pain": "Cymbals sound brittle.", "approach": "Dynamic EQ first.", "keywords": ["cymbals", " ", "drum kit"]},
		{"title": ""},
		"Gain Staging 101"
	]}` + "\n```"
	g := &TopicGenerator{Completer: &fakeCompleter{reply: reply}}

	got, err := g.GenerateThemes(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []types.Theme{
		{
			Title:      "Taming Harsh Cymbals",
			TargetPain: "Cymbals sound brittle.",
			Approach:   "Dynamic EQ first.",
			Keywords:   []string{"cymbals", "drum kit"},
		},
		{Title: "Gain Staging 101"},
	}, got)
}

func TestGenerateThemesPromptAsksForDetails(t *testing.T) {
	fc := &fakeCompleter{reply: `{"themes":[]}`}
	g := &TopicGenerator{Completer: fc}
	_, err := g.GenerateThemes(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], `"target_pain"`)
	assert.Contains(t, fc.prompts[0], `"keywords"`)
}

func TestGenerateInvalidJSON(t *testing.T) {
	g := &TopicGenerator{Completer: &fakeCompleter{reply: "Here are some ideas: ..."}}
	_, err := g.Generate(context.Background(), 1)
	require.Error(t, err)
}

func TestGeneratePropagatesCompleterError(t *testing.T) {
	boom := errors.New("boom")
	g := &TopicGenerator{Completer: &fakeCompleter{err: boom}}
	_, err := g.Generate(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateZeroSkipsCall(t *testing.T) {
	fc := &fakeCompleter{reply: `{"titles":[]}`}
	g := &TopicGenerator{Completer: fc}
	got, err := g.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, fc.prompts)
}

func TestGeneratePromptListsExisting(t *testing.T) {
	fc := &fakeCompleter{reply: `{"titles":["New"]}`}
	g := &TopicGenerator{
		Completer: fc,
		Existing:  func() []string { return []string{"EQ for Vocals", "Compressor Attack Times"} },
	}
	_, err := g.Generate(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, fc.prompts, 1)
	p := fc.prompts[0]
	assert.Contains(t, p, "Propose 3 new article themes")
	assert.Contains(t, p, "- EQ for Vocals")
	assert.Contains(t, p, "- Compressor Attack Times")
	assert.Contains(t, p, DefaultBlogName)
	assert.Contains(t, p, "Write the titles in Japanese.")
}

func TestGenerateWithClient(t *testing.T) {
	srv, _, _ := fakeMessagesAPI(t, `{"titles":["Gain Staging 101"]}`)
	g := &TopicGenerator{Completer: newTestClient(t, srv.URL)}

	got, err := g.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gain Staging 101"}, got)
}

// --- ArticleGenerator ---

func TestGenerateArticle(t *testing.T) {
	fc := &fakeCompleter{reply: "```html\n<h2>Intro</h2>\n<p>Body</p>\n```"}
	g := &ArticleGenerator{Completer: fc}
	theme := types.Theme{
		ID:         7,
		Title:      "Lo-Fi Drum Mixing",
		TargetPain: "Drums sound too clean",
		Approach:   "Use saturation and bit reduction",
	}

	a, err := g.GenerateArticle(context.Background(), theme)
	require.NoError(t, err)
	assert.Equal(t, "Lo-Fi Drum Mixing", a.Title)
	assert.Equal(t, 7, a.ThemeID)
	assert.Equal(t, "<h2>Intro</h2>\n<p>Body</p>", a.Content)

	require.Len(t, fc.prompts, 1)
	p := fc.prompts[0]
	assert.Contains(t, p, "# Theme\nLo-Fi Drum Mixing")
	assert.Contains(t, p, "Drums sound too clean")
	assert.Contains(t, p, "Use saturation and bit reduction")
	assert.Contains(t, p, "roughly 800 to 1500 characters")
	assert.Contains(t, p, "Do not include the title.")
}

func TestGenerateArticleOmitsEmptySections(t *testing.T) {
	fc := &fakeCompleter{reply: "<p>x</p>"}
	g := &ArticleGenerator{Completer: fc}

	_, err := g.GenerateArticle(context.Background(), types.Theme{ID: 1, Title: "T"})
	require.NoError(t, err)
	assert.NotContains(t, fc.prompts[0], "# The reader's problem")
	assert.NotContains(t, fc.prompts[0], "# Angle")
}

func TestGenerateArticleContentOverrides(t *testing.T) {
	fc := &fakeCompleter{reply: "<p>x</p>"}
	g := &ArticleGenerator{Completer: fc, Content: types.ContentConfig{
		BlogName: "Mix Notes",
		Language: "English",
		MinChars: 1000,
		MaxChars: 2000,
	}}

	_, err := g.GenerateArticle(context.Background(), types.Theme{ID: 1, Title: "T"})
	require.NoError(t, err)
	assert.Contains(t, fc.prompts[0], `"Mix Notes"`)
	assert.Contains(t, fc.prompts[0], "Language: English.")
	assert.Contains(t, fc.prompts[0], "roughly 1000 to 2000 characters")
}

func TestGenerateArticleErrors(t *testing.T) {
	g := &ArticleGenerator{Completer: &fakeCompleter{err: errors.New("down")}}
	_, err := g.GenerateArticle(context.Background(), types.Theme{ID: 3, Title: "T"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme 3")

	g = &ArticleGenerator{Completer: &fakeCompleter{reply: "```html\n```"}}
	_, err = g.GenerateArticle(context.Background(), types.Theme{ID: 3, Title: "T"})
	require.Error(t, err)
}

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"html kept", "<h2>A</h2>\n<p>b</p>", "<h2>A</h2>\n<p>b</p>"},
		{"markdown converted", "## A\n\nSome **bold** text", "<h2>A</h2>\n<p>Some <strong>bold</strong> text</p>"},
		{"leading h1 dropped", "<h1>Title</h1>\n<h2>A</h2>", "<h2>A</h2>"},
		{"markdown title dropped", "# Title\n\n- one\n- two", "<ul>\n<li>one</li>\n<li>two</li>\n</ul>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBody(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithContentDefaults(t *testing.T) {
	c := WithContentDefaults(types.ContentConfig{MinChars: 2000})
	assert.Equal(t, DefaultBlogName, c.BlogName)
	assert.Equal(t, 2000, c.MinChars)
	assert.Equal(t, 4000, c.MaxChars)
}
