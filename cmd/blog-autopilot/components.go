// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/pdiddy/blog-autopilot/internal/history"
	"github.com/pdiddy/blog-autopilot/internal/images"
	"github.com/pdiddy/blog-autopilot/internal/llm"
	"github.com/pdiddy/blog-autopilot/internal/pipeline"
	"github.com/pdiddy/blog-autopilot/internal/theme"
	"github.com/pdiddy/blog-autopilot/internal/wordpress"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// openThemes opens the theme store. When withGenerator is set and an API
// key is configured, replenishment uses Claude; otherwise the pool is
// never topped up. create starts an empty pool when the file is missing.
func openThemes(cfg types.PipelineConfig, withGenerator, create bool) (*theme.Store, error) {
	opts := theme.Options{MinUnused: cfg.Themes.MinUnused, CreateIfMissing: create}

	var topics *llm.TopicGenerator
	if withGenerator && cfg.AI.APIKey != "" {
		client, err := llm.New(cfg.AI)
		if err != nil {
			return nil, err
		}
		topics = &llm.TopicGenerator{Completer: client, Content: cfg.Content}
		opts.Generator = topics
	}

	store, err := theme.Open(cfg.Themes.Path, opts)
	if err != nil {
		return nil, err
	}
	if topics != nil {
		topics.Existing = store.Titles
	}
	return store, nil
}

// components bundles the opened stages for one command invocation.
type components struct {
	pipeline *pipeline.Pipeline
	history  *history.Store
}

func (c *components) Close() error {
	if c.history != nil {
		return c.history.Close()
	}
	return nil
}

// buildPipeline wires every stage from cfg. withHistory opens the run
// ledger; dry runs skip it.
func buildPipeline(cfg types.PipelineConfig, out io.Writer, withHistory bool) (*components, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required: set ai.api_key, %s_AI_API_KEY, or .secrets/anthropic-api-key", envPrefix)
	}

	client, err := llm.New(cfg.AI)
	if err != nil {
		return nil, err
	}
	store, err := openThemes(cfg, true, false)
	if err != nil {
		return nil, err
	}

	wp, err := wordpress.New(cfg.WordPress)
	if err != nil {
		return nil, err
	}

	src, err := images.NewSource(cfg.Images)
	if err != nil {
		return nil, err
	}

	c := &components{}
	var rec pipeline.Recorder
	if withHistory {
		h, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		c.history = h
		rec = h
	}

	writer := &llm.ArticleGenerator{Completer: client, Content: cfg.Content}
	c.pipeline = pipeline.New(cfg, store, writer, wp, src, rec, out)
	return c, nil
}
