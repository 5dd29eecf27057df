// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm drafts articles and proposes new themes with the Claude
// Messages API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/avast/retry-go/v4"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

const (
	DefaultModel       = "claude-sonnet-4-5"
	defaultMaxTokens   = 4000
	defaultTemperature = 0.7
	defaultMaxRetries  = 3
)

// retryDelay is the base backoff between attempts. Tests override this to
// avoid real sleeps.
var retryDelay = 2 * time.Second

// Client sends single-turn prompts to Claude and returns the text reply.
type Client struct {
	api         anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	maxRetries  int
}

// New builds a client from cfg. The API key is required.
func New(cfg types.AIConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled here so every attempt is logged.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	c := &Client{
		api:         anthropic.NewClient(reqOpts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.temperature <= 0 {
		c.temperature = defaultTemperature
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	return c, nil
}

// Model returns the model identifier requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the
// concatenated text blocks of the reply. Transient failures (rate limits,
// overload, 5xx, transport errors) are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var msg *anthropic.Message
	err := retry.Do(
		func() error {
			var err error
			msg, err = c.api.Messages.New(ctx, params)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", c.maxRetries+1).
				Warn("retrying Claude API call")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("Claude API returned no text content")
	}

	logger.G(ctx).
		WithField("model", c.model).
		WithField("input_tokens", msg.Usage.InputTokens).
		WithField("output_tokens", msg.Usage.OutputTokens).
		Debug("Claude API call completed")
	return text, nil
}

// isRetryable treats API errors with status 408, 409, 429 and >= 500 as
// transient, along with any non-API error other than context cancellation.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			return true
		}
		return false
	}
	return true
}

// stripFences removes a surrounding Markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
