// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blog-autopilot/internal/llm"
	"github.com/pdiddy/blog-autopilot/internal/pipeline"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Draft and post one article",
	Long: `Run performs one pipeline cycle: it checks the WordPress connection,
takes the next unused theme (replenishing the pool first if it is low),
drafts an article with Claude, creates the post, attaches a featured image
when an image provider is configured, and marks the theme used.

Posts are created as drafts unless --publish or wordpress.auto_publish is
set. With --dry-run the article is printed and nothing is posted or marked.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "print the generated article without posting or marking the theme used")
	runCmd.Flags().Bool("publish", false, "publish immediately instead of creating a draft")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if publish, _ := cmd.Flags().GetBool("publish"); publish {
		cfg.WordPress.AutoPublish = true
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	if dryRun {
		return runDry(cmd, cfg)
	}

	c, err := buildPipeline(cfg, out, true)
	if err != nil {
		return err
	}
	defer c.Close()

	run, err := c.pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "done: run %s posted %d (%s)\n", run.ID, run.PostID, run.PostStatus)
	return nil
}

// runDry needs only Claude and the theme store, so WordPress credentials
// may be absent.
func runDry(cmd *cobra.Command, cfg types.PipelineConfig) error {
	client, err := llm.New(cfg.AI)
	if err != nil {
		return err
	}
	store, err := openThemes(cfg, true, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	writer := &llm.ArticleGenerator{Completer: client, Content: cfg.Content}
	p := pipeline.New(cfg, store, writer, nil, nil, nil, out)

	article, err := p.DryRun(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n# %s\n\n%s\n", article.Title, article.Content)
	return nil
}
