// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data shapes shared across pipeline stages:
// themes, articles, WordPress posts, run records, and configuration.
package types

import (
	"strings"
	"time"
)

// Theme is a candidate article topic. Themes are never deleted; only the
// Used flag changes after creation.
type Theme struct {
	// ID is the stable identifier, unique within a theme document.
	ID int `json:"id" yaml:"id"`

	// Title is the article topic. Titles are unique case-insensitively.
	Title string `json:"title" yaml:"title"`

	// Used reports whether an article has already been posted for this theme.
	Used bool `json:"used" yaml:"used"`

	// CreatedAt records when the theme entered the pool.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// TargetPain describes the reader problem the article addresses.
	TargetPain string `json:"target_pain,omitempty" yaml:"target_pain,omitempty"`

	// Approach describes the angle the article should take.
	Approach string `json:"approach,omitempty" yaml:"approach,omitempty"`

	// Keywords are stock photo search terms for the featured image.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// ThemeFile is the on-disk theme document.
type ThemeFile struct {
	Themes []Theme `json:"themes" yaml:"themes"`
}

// TitleKey normalizes a title for uniqueness comparison.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
