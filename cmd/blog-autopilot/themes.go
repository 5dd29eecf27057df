// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blog-autopilot/internal/theme"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect and edit the theme pool",
	Long: `Themes manages the pool of article topics stored in themes.path
(default data/themes.json). Themes are never deleted; running an article
marks its theme used, and reset returns every theme to the pool.`,
}

// --- list subcommand ---

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThemesFromConfig(false, false)
		if err != nil {
			return err
		}
		unusedOnly, _ := cmd.Flags().GetBool("unused")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		var list []types.Theme
		for _, t := range store.Themes() {
			if unusedOnly && t.Used {
				continue
			}
			list = append(list, t)
		}
		return formatThemes(cmd.OutOrStdout(), list, store.UnusedCount(), jsonOutput)
	},
}

func formatThemes(w io.Writer, list []types.Theme, unused int, jsonOutput bool) error {
	if jsonOutput {
		if list == nil {
			list = []types.Theme{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No themes.")
		return nil
	}
	fmt.Fprintf(w, "%-4s  %-5s  %-10s  %s\n", "ID", "Used", "Created", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, t := range list {
		used := ""
		if t.Used {
			used = "yes"
		}
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-5s  %-10s  %s\n", t.ID, used, created, t.Title)
	}
	fmt.Fprintf(w, "\n%d theme(s), %d unused\n", len(list), unused)
	return nil
}

// --- next subcommand ---

var themesNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the theme the next run will use",
	Long: `Next prints the earliest unused theme without consuming it. The pool
is not replenished.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThemesFromConfig(false, false)
		if err != nil {
			return err
		}
		t, err := store.Next(cmd.Context())
		if err != nil {
			return err
		}
		printTheme(cmd.OutOrStdout(), t)
		return nil
	},
}

func printTheme(w io.Writer, t types.Theme) {
	fmt.Fprintf(w, "%d  %s\n", t.ID, t.Title)
	if t.TargetPain != "" {
		fmt.Fprintf(w, "  pain:     %s\n", t.TargetPain)
	}
	if t.Approach != "" {
		fmt.Fprintf(w, "  approach: %s\n", t.Approach)
	}
	if len(t.Keywords) > 0 {
		fmt.Fprintf(w, "  keywords: %s\n", strings.Join(t.Keywords, ", "))
	}
}

// --- add subcommand ---

var themesAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a theme to the pool",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThemesFromConfig(false, true)
		if err != nil {
			return err
		}
		pain, _ := cmd.Flags().GetString("pain")
		approach, _ := cmd.Flags().GetString("approach")

		t, err := store.Add(strings.Join(args, " "), pain, approach)
		if err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added: %d %s\n", t.ID, t.Title)
		return nil
	},
}

// --- mark-used subcommand ---

var themesMarkUsedCmd = &cobra.Command{
	Use:   "mark-used <id>...",
	Short: "Mark themes as used",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		store, err := openThemesFromConfig(false, false)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := store.MarkUsed(id); err != nil {
				return err
			}
		}
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "marked %d theme(s) used, %d unused remain\n", len(ids), store.UnusedCount())
		return nil
	},
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid theme id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- reset subcommand ---

var themesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Mark every theme unused",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThemesFromConfig(false, false)
		if err != nil {
			return err
		}
		store.Reset()
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d theme(s)\n", len(store.Themes()))
		return nil
	},
}

// --- replenish subcommand ---

var themesReplenishCmd = &cobra.Command{
	Use:   "replenish",
	Short: "Top the pool up with generated themes if it is low",
	Long: `Replenish asks Claude for new themes when the unused count is at or
below themes.min_unused, bringing it back up to that number. Duplicate
titles are discarded. Generation failures are logged and leave the pool
unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("anthropic API key is required for replenishment")
		}
		store, err := openThemes(cfg, true, true)
		if err != nil {
			return err
		}
		added, err := store.ReplenishIfNeeded(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, t := range added {
			fmt.Fprintf(w, "added: %d %s\n", t.ID, t.Title)
		}
		fmt.Fprintf(w, "%d theme(s) added, %d unused\n", len(added), store.UnusedCount())
		return nil
	},
}

func openThemesFromConfig(withGenerator, create bool) (*theme.Store, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	store, err := openThemes(cfg, withGenerator, create)
	if errors.Is(err, theme.ErrStoreMissing) {
		return nil, fmt.Errorf("%w (run \"mage init\" or \"blog-autopilot themes add\" first)", err)
	}
	return store, err
}

func init() {
	themesListCmd.Flags().Bool("unused", false, "list only unused themes")
	themesListCmd.Flags().Bool("json", false, "output themes as JSON")

	themesAddCmd.Flags().String("pain", "", "the reader problem the article addresses")
	themesAddCmd.Flags().String("approach", "", "the angle the article should take")

	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesNextCmd)
	themesCmd.AddCommand(themesAddCmd)
	themesCmd.AddCommand(themesMarkUsedCmd)
	themesCmd.AddCommand(themesResetCmd)
	themesCmd.AddCommand(themesReplenishCmd)

	rootCmd.AddCommand(themesCmd)
}
