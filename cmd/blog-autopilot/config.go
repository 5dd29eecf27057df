// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/blog-autopilot/internal/history"
	"github.com/pdiddy/blog-autopilot/internal/images"
	"github.com/pdiddy/blog-autopilot/internal/llm"
	"github.com/pdiddy/blog-autopilot/internal/schedule"
	"github.com/pdiddy/blog-autopilot/internal/secrets"
	"github.com/pdiddy/blog-autopilot/internal/theme"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

const (
	envPrefix        = "BLOG_AUTOPILOT"
	defaultThemePath = "data/themes.json"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "blog-autopilot/0.1"
)

// legacyEnv maps config keys to the environment variable names used by
// the earlier shell-driven deployment. They are read in addition to the
// BLOG_AUTOPILOT_* names.
var legacyEnv = map[string]string{
	"ai.api_key":                          "CLAUDE_API_KEY",
	"wordpress.site_url":                  "WP_SITE_URL",
	"wordpress.username":                  "WP_USERNAME",
	"wordpress.app_password":              "WP_APP_PASSWORD",
	"wordpress.auto_publish":              "AUTO_PUBLISH",
	"images.unsplash_access_key":          "UNSPLASH_ACCESS_KEY",
	"images.shutterstock_consumer_key":    "SHUTTERSTOCK_CONSUMER_KEY",
	"images.shutterstock_consumer_secret": "SHUTTERSTOCK_CONSUMER_SECRET",
	"images.shutterstock_access_token":    "SHUTTERSTOCK_ACCESS_TOKEN",
}

// configureViper registers defaults and environment bindings. Every key
// that Unmarshal should see must have a default, since AutomaticEnv only
// applies to known keys.
func configureViper(v *viper.Viper) {
	defaults := map[string]any{
		"ai.model":       llm.DefaultModel,
		"ai.api_key":     "",
		"ai.base_url":    "",
		"ai.max_retries": 3,
		"ai.max_tokens":  4000,
		"ai.temperature": 0.7,

		"content.blog_name": llm.DefaultBlogName,
		"content.niche":     llm.DefaultNiche,
		"content.audience":  llm.DefaultAudience,
		"content.language":  llm.DefaultLanguage,
		"content.min_chars": llm.DefaultMinChars,
		"content.max_chars": llm.DefaultMaxChars,

		"themes.path":       defaultThemePath,
		"themes.min_unused": theme.DefaultMinUnused,

		"wordpress.timeout":      defaultTimeout,
		"wordpress.user_agent":   defaultUserAgent,
		"wordpress.site_url":     "",
		"wordpress.username":     "",
		"wordpress.app_password": "",
		"wordpress.auto_publish": false,
		"wordpress.categories":   []int{},
		"wordpress.tags":         []string{},

		"images.timeout":                      defaultTimeout,
		"images.user_agent":                   defaultUserAgent,
		"images.provider":                     "",
		"images.fallback_keyword":             images.DefaultFallbackKeyword,
		"images.unsplash_access_key":          "",
		"images.shutterstock_consumer_key":    "",
		"images.shutterstock_consumer_secret": "",
		"images.shutterstock_access_token":    "",

		"history.path": history.DefaultPath,

		"schedule.spec":     schedule.DefaultSpec,
		"schedule.location": "Local",
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		// BindEnv with explicit names disables the prefix, so both names
		// are listed; the first one set wins.
		_ = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy)
	}
}

// loadConfig decodes the full configuration and fills credentials from
// the secrets directory where config and environment left them empty.
func loadConfig(v *viper.Viper, s secrets.Secrets) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.AI.APIKey = s.Or(secrets.AnthropicAPIKey, cfg.AI.APIKey)
	cfg.WordPress.AppPassword = s.Or(secrets.WordPressAppPassword, cfg.WordPress.AppPassword)
	cfg.Images.UnsplashAccessKey = s.Or(secrets.UnsplashAccessKey, cfg.Images.UnsplashAccessKey)
	cfg.Images.ShutterstockConsumerKey = s.Or(secrets.ShutterstockConsumerKey, cfg.Images.ShutterstockConsumerKey)
	cfg.Images.ShutterstockConsumerSecret = s.Or(secrets.ShutterstockConsumerSecret, cfg.Images.ShutterstockConsumerSecret)
	cfg.Images.ShutterstockAccessToken = s.Or(secrets.ShutterstockAccessToken, cfg.Images.ShutterstockAccessToken)

	cfg.Images.Provider = types.ImageProvider(strings.ToLower(strings.TrimSpace(string(cfg.Images.Provider))))
	return cfg, nil
}

// currentConfig loads configuration from the global viper instance.
func currentConfig() (types.PipelineConfig, error) {
	return loadConfig(viper.GetViper(), loadedSecrets)
}

// reloadConfig re-reads the config file, if one was found at startup, and
// the secrets directory.
func reloadConfig(ctx context.Context, secretsDir string) error {
	if viper.ConfigFileUsed() != "" {
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	s, err := secrets.Load(ctx, secretsDir)
	if err != nil {
		return err
	}
	loadedSecrets = s
	return nil
}
