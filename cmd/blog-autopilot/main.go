// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the blog-autopilot CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the blog-autopilot CLI.
var rootCmd = &cobra.Command{
	Use:   "blog-autopilot",
	Short: "Scheduled article drafting for a WordPress blog",
	Long: `blog-autopilot draws the next unused theme from a theme pool, asks Claude
to draft an article for it, and posts the result to WordPress as a draft
(or published, with auto-publish). When the pool runs low it asks Claude
for new themes.

Run it once a day from cron or CI with "run", or keep it resident with
"daemon". Manage the theme pool with "themes".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		if err := logger.Configure(level, format); err != nil {
			return fmt.Errorf("configuring logger: %w", err)
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(cmd.Context(), dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.G(cmd.Context()).WithField("keys", s.Keys()).Debug("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./blog-autopilot.yaml or ~/.config/blog-autopilot/blog-autopilot.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files, one key per file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("blog-autopilot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "blog-autopilot"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		logger.L.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("command failed")
		stop()
		os.Exit(1)
	}
}
