// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/internal/schedule"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the pipeline on a cron schedule",
	Long: `Daemon stays resident and performs one run at every activation of
schedule.spec (default "0 6 * * *") in schedule.location. A run that is
still in progress when the next activation fires causes that activation to
be skipped. Interrupt or SIGTERM stops the daemon after the current run.

Configuration and secrets are reloaded for every run.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().Bool("run-now", false, "perform one run immediately at startup")

	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")

	job := func(ctx context.Context) error {
		if err := reloadConfig(ctx, secretsDir); err != nil {
			logger.G(ctx).WithError(err).Warn("reloading config failed, using previous values")
		}
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		c, err := buildPipeline(cfg, out, true)
		if err != nil {
			return err
		}
		defer c.Close()
		_, err = c.pipeline.Run(ctx)
		return err
	}

	d, err := schedule.New(cfg.Schedule, job)
	if err != nil {
		return err
	}
	d.RunOnStart, _ = cmd.Flags().GetBool("run-now")
	return d.Run(cmd.Context())
}
