// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "blog-autopilot/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint. Empty means the SDK default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxTokens caps the length of a single response (default 4000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// ContentConfig describes the blog the articles are written for.
type ContentConfig struct {
	// BlogName is the publication name used in the editorial prompt.
	BlogName string `json:"blog_name" yaml:"blog_name" mapstructure:"blog_name"`

	// Niche is the subject area, e.g. "DTM and home recording".
	Niche string `json:"niche" yaml:"niche" mapstructure:"niche"`

	// Audience describes the target reader.
	Audience string `json:"audience" yaml:"audience" mapstructure:"audience"`

	// Language is the output language of generated text.
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// MinChars and MaxChars bound the article length in characters.
	MinChars int `json:"min_chars" yaml:"min_chars" mapstructure:"min_chars"`
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`
}

// ThemeConfig holds settings for the theme store.
type ThemeConfig struct {
	// Path is the theme document location. A .yaml or .yml suffix selects
	// YAML encoding; anything else is JSON.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// MinUnused is the replenishment target: when the unused count is at
	// or below it, new themes are generated to bring it back up (default 3).
	MinUnused int `json:"min_unused" yaml:"min_unused" mapstructure:"min_unused"`
}

// WordPressConfig holds the CMS connection settings.
type WordPressConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SiteURL is the site root, e.g. https://example.com.
	SiteURL string `json:"site_url" yaml:"site_url" mapstructure:"site_url"`

	// Username is the WordPress account name.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// AppPassword is a WordPress application password.
	AppPassword string `json:"app_password,omitempty" yaml:"app_password,omitempty" mapstructure:"app_password"`

	// AutoPublish creates posts as published instead of draft.
	AutoPublish bool `json:"auto_publish" yaml:"auto_publish" mapstructure:"auto_publish"`

	// Categories and Tags are applied to every created post.
	Categories []int    `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
}

// ImageProvider identifies the stock photo service.
type ImageProvider string

const (
	ProviderNone         ImageProvider = ""
	ProviderUnsplash     ImageProvider = "unsplash"
	ProviderShutterstock ImageProvider = "shutterstock"
)

// ImageConfig holds settings for featured image lookup.
type ImageConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the stock photo service. Empty disables images.
	Provider ImageProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// FallbackKeyword is tried after all theme keywords fail.
	FallbackKeyword string `json:"fallback_keyword" yaml:"fallback_keyword" mapstructure:"fallback_keyword"`

	UnsplashAccessKey          string `json:"-" yaml:"-" mapstructure:"unsplash_access_key"`
	ShutterstockConsumerKey    string `json:"-" yaml:"-" mapstructure:"shutterstock_consumer_key"`
	ShutterstockConsumerSecret string `json:"-" yaml:"-" mapstructure:"shutterstock_consumer_secret"`
	ShutterstockAccessToken    string `json:"-" yaml:"-" mapstructure:"shutterstock_access_token"`
}

// HistoryConfig holds settings for the run ledger.
type HistoryConfig struct {
	// Path is the SQLite database file (default data/history.db).
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ScheduleConfig holds settings for the in-process daemon.
type ScheduleConfig struct {
	// Spec is a standard 5-field cron expression (default "0 6 * * *").
	Spec string `json:"spec" yaml:"spec" mapstructure:"spec"`

	// Location is an IANA time zone name (default "Local").
	Location string `json:"location" yaml:"location" mapstructure:"location"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	AI        AIConfig        `json:"ai" yaml:"ai" mapstructure:"ai"`
	Content   ContentConfig   `json:"content" yaml:"content" mapstructure:"content"`
	Themes    ThemeConfig     `json:"themes" yaml:"themes" mapstructure:"themes"`
	WordPress WordPressConfig `json:"wordpress" yaml:"wordpress" mapstructure:"wordpress"`
	Images    ImageConfig     `json:"images" yaml:"images" mapstructure:"images"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
}
