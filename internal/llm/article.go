// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// Content defaults describe the original blog: a Japanese DTM and home
// recording site.
const (
	DefaultBlogName = "音脳ラボ"
	DefaultNiche    = "DTM and home recording"
	DefaultAudience = "beginner to intermediate home producers"
	DefaultLanguage = "Japanese"
	DefaultMinChars = 800
	DefaultMaxChars = 1500
)

// WithContentDefaults fills zero fields of c.
func WithContentDefaults(c types.ContentConfig) types.ContentConfig {
	if c.BlogName == "" {
		c.BlogName = DefaultBlogName
	}
	if c.Niche == "" {
		c.Niche = DefaultNiche
	}
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.MinChars <= 0 {
		c.MinChars = DefaultMinChars
	}
	if c.MaxChars < c.MinChars {
		c.MaxChars = DefaultMaxChars
		if c.MaxChars < c.MinChars {
			c.MaxChars = c.MinChars * 2
		}
	}
	return c
}

var articlePromptTmpl = template.Must(template.New("article").Parse(`You are the editorial assistant for "{{.BlogName}}", a blog about {{.Niche}}.
Write a practical article for {{.Audience}} on the theme below.

# Theme
{{.Title}}
{{- if .TargetPain}}

# The reader's problem
{{.TargetPain}}
{{- end}}
{{- if .Approach}}

# Angle
{{.Approach}}
{{- end}}

# Constraints
- Use your own perspective and structure. Do not paraphrase other sites.
- Avoid listing specs or shallow explanations. Focus on why things happen.
- Show the concrete mistakes beginners make and the criteria for deciding.
- Tone: relaxed and friendly. Explain jargon in plain words.
- Length: roughly {{.MinChars}} to {{.MaxChars}} characters.
- Language: {{.Language}}.

# Suggested structure
1. Introduction (empathize with the reader's problem)
2. Causes (why the problem happens)
3. Decision points (how to think about it)
4. Concrete examples (settings or worked reasoning)
5. Summary (key points and the next action)

# Output format
Output HTML using only these tags:
- <h2>, <h3> (headings)
- <p> (paragraphs)
- <strong> (emphasis)
- <ul>, <li> (lists)

Output the article body only. Do not include the title.
`))

// ArticleGenerator drafts the HTML body of an article for a theme.
type ArticleGenerator struct {
	Completer Completer
	Content   types.ContentConfig
}

// GenerateArticle renders the editorial prompt for t and returns the
// drafted article. The article title is the theme title.
func (g *ArticleGenerator) GenerateArticle(ctx context.Context, t types.Theme) (types.Article, error) {
	prompt, err := renderArticlePrompt(WithContentDefaults(g.Content), t)
	if err != nil {
		return types.Article{}, fmt.Errorf("rendering article prompt: %w", err)
	}

	log := logger.G(ctx).WithField("theme_id", t.ID)
	log.WithField("title", t.Title).Info("generating article")

	reply, err := g.Completer.Complete(ctx, prompt)
	if err != nil {
		return types.Article{}, fmt.Errorf("generating article for theme %d: %w", t.ID, err)
	}

	body, err := normalizeBody(reply)
	if err != nil {
		return types.Article{}, fmt.Errorf("generating article for theme %d: %w", t.ID, err)
	}
	if body == "" {
		return types.Article{}, fmt.Errorf("generating article for theme %d: empty body", t.ID)
	}
	log.WithField("chars", len([]rune(body))).Debug("article generated")

	return types.Article{
		Title:   t.Title,
		Content: body,
		ThemeID: t.ID,
	}, nil
}

var (
	bodyTag   = regexp.MustCompile(`(?i)<(h2|h3|p|ul|li|strong)\b`)
	leadingH1 = regexp.MustCompile(`(?is)^\s*<h1[^>]*>.*?</h1>\s*`)
)

// normalizeBody strips code fences, converts a Markdown reply to HTML, and
// drops a leading <h1> title.
func normalizeBody(reply string) (string, error) {
	body := stripFences(reply)
	if body != "" && !bodyTag.MatchString(body) {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(body), &buf); err != nil {
			return "", fmt.Errorf("converting Markdown reply: %w", err)
		}
		body = buf.String()
	}
	body = leadingH1.ReplaceAllString(body, "")
	return strings.TrimSpace(body), nil
}

func renderArticlePrompt(c types.ContentConfig, t types.Theme) (string, error) {
	var buf bytes.Buffer
	err := articlePromptTmpl.Execute(&buf, struct {
		types.ContentConfig
		Title      string
		TargetPain string
		Approach   string
	}{c, strings.TrimSpace(t.Title), strings.TrimSpace(t.TargetPain), strings.TrimSpace(t.Approach)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
