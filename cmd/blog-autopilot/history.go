// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blog-autopilot/internal/history"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	Long: `History prints the run ledger kept in history.path (default
data/history.db): one row per run with its theme, post and outcome.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	historyCmd.Flags().Int("theme", 0, "show only runs for this theme id")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var runs []types.Run
	if themeID, _ := cmd.Flags().GetInt("theme"); themeID > 0 {
		runs, err = store.ForTheme(cmd.Context(), themeID)
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err = store.Recent(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRuns(cmd.OutOrStdout(), runs, jsonOutput)
}

func formatRuns(w io.Writer, runs []types.Run, jsonOutput bool) error {
	if jsonOutput {
		if runs == nil {
			runs = []types.Run{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-16s  %-5s  %-7s  %-7s  %s\n", "Started", "Theme", "Post", "Status", "Result")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range runs {
		result := "ok"
		if r.Error != "" {
			result = r.Error
			if len(result) > 40 {
				result = result[:37] + "..."
			}
		}
		post := "-"
		if r.PostID != 0 {
			post = fmt.Sprint(r.PostID)
		}
		fmt.Fprintf(w, "%-16s  %-5d  %-7s  %-7s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ThemeID, post, r.PostStatus, result)
	}
	return nil
}
