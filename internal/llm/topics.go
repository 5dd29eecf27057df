// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// Completer sends a prompt and returns the model's text reply. *Client
// implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// maxExistingInPrompt bounds how many existing titles are listed in the
// topic prompt.
const maxExistingInPrompt = 100

var topicPromptTmpl = template.Must(template.New("topics").Parse(`You are the editor of "{{.BlogName}}", a blog about {{.Niche}} written for {{.Audience}}.

Propose {{.N}} new article themes. Each theme must be a concrete, practical topic a reader could act on after one article, not a broad survey.

{{- if .Existing}}

These themes already exist. Do not repeat them or propose near-duplicates:
{{- range .Existing}}
- {{.}}
{{- end}}
{{- end}}

For each theme give:
- "title": the article title
- "target_pain": the reader's problem in one sentence
- "approach": the angle the article takes in one sentence
- "keywords": two or three English stock photo search terms for a featured image

Write the titles in {{.Language}}. Write target_pain and approach in {{.Language}} as well.

Respond with a JSON object containing a "themes" array. Do not include any text outside the JSON object.

Example response:
{"themes": [{"title": "How to Tame Harsh Cymbals With a Dynamic EQ", "target_pain": "Cymbals sound brittle after mixing.", "approach": "Use a dynamic EQ before reaching for static cuts.", "keywords": ["cymbals", "drum kit"]}]}
`))

// TopicGenerator proposes new themes. It satisfies theme.Generator and
// theme.ThemeGenerator.
type TopicGenerator struct {
	Completer Completer

	// Content describes the blog. Zero fields take the package defaults.
	Content types.ContentConfig

	// Existing, when set, returns the titles already in the pool so the
	// model can avoid them.
	Existing func() []string
}

// Generate asks the model for n themes and returns their titles.
func (g *TopicGenerator) Generate(ctx context.Context, n int) ([]string, error) {
	themes, err := g.GenerateThemes(ctx, n)
	if err != nil || themes == nil {
		return nil, err
	}
	titles := make([]string, len(themes))
	for i, t := range themes {
		titles[i] = t.Title
	}
	return titles, nil
}

// GenerateThemes asks the model for n themes with their reader problem,
// angle and image keywords. The result is not deduplicated; the theme
// store filters it.
func (g *TopicGenerator) GenerateThemes(ctx context.Context, n int) ([]types.Theme, error) {
	if n <= 0 {
		return nil, nil
	}

	var existing []string
	if g.Existing != nil {
		existing = g.Existing()
		if len(existing) > maxExistingInPrompt {
			existing = existing[len(existing)-maxExistingInPrompt:]
		}
	}

	content := WithContentDefaults(g.Content)
	var buf bytes.Buffer
	err := topicPromptTmpl.Execute(&buf, struct {
		types.ContentConfig
		N        int
		Existing []string
	}{content, n, existing})
	if err != nil {
		return nil, fmt.Errorf("rendering topic prompt: %w", err)
	}

	reply, err := g.Completer.Complete(ctx, buf.String())
	if err != nil {
		return nil, err
	}

	themes, err := parseThemes(reply)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("requested", n).WithField("returned", len(themes)).Debug("topic generation completed")
	return themes, nil
}

// topicEntry is one proposed theme. A bare JSON string is read as a title.
type topicEntry struct {
	Title      string   `json:"title"`
	TargetPain string   `json:"target_pain"`
	Approach   string   `json:"approach"`
	Keywords   []string `json:"keywords"`
}

func (e *topicEntry) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Title)
	}
	type plain topicEntry
	return json.Unmarshal(b, (*plain)(e))
}

// parseThemes accepts {"themes": [...]}, {"titles": [...]} or a bare JSON
// array, optionally wrapped in a code fence. Entries may be objects or
// plain title strings.
func parseThemes(reply string) ([]types.Theme, error) {
	body := stripFences(reply)

	var entries []topicEntry
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &entries); err != nil {
			return nil, fmt.Errorf("parsing topic reply: %w", err)
		}
	} else {
		var obj struct {
			Themes []topicEntry `json:"themes"`
			Titles []topicEntry `json:"titles"`
		}
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			return nil, fmt.Errorf("parsing topic reply: %w", err)
		}
		entries = append(obj.Themes, obj.Titles...)
	}

	themes := make([]types.Theme, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		var keywords []string
		for _, k := range e.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		themes = append(themes, types.Theme{
			Title:      title,
			TargetPain: strings.TrimSpace(e.TargetPain),
			Approach:   strings.TrimSpace(e.Approach),
			Keywords:   keywords,
		})
	}
	return themes, nil
}
