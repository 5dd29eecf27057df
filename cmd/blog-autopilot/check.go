// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/spf13/cobra"

	"github.com/pdiddy/blog-autopilot/internal/wordpress"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <post-id>",
	Short: "Fetch a post from WordPress and print it as Markdown",
	Long: `Check retrieves a post by ID and prints its title, status, link and
body. The HTML body is converted to Markdown for review in a terminal;
use --raw to print the HTML as stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("raw", false, "print the body HTML without conversion")
	checkCmd.Flags().Bool("json", false, "output the post as JSON")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid post id %q", args[0])
	}

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	wp, err := wordpress.New(cfg.WordPress)
	if err != nil {
		return err
	}

	post, err := wp.GetPost(cmd.Context(), id)
	if err != nil {
		if wordpress.IsNotFound(err) {
			return fmt.Errorf("post %d not found", id)
		}
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(post)
	}
	raw, _ := cmd.Flags().GetBool("raw")
	return formatPost(w, post, raw)
}

func formatPost(w io.Writer, post *types.Post, raw bool) error {
	body := post.Content.Rendered
	if !raw {
		converted, err := htmlToMarkdown(body)
		if err != nil {
			return fmt.Errorf("converting post body: %w", err)
		}
		body = converted
	}

	fmt.Fprintf(w, "=== %s ===\n", html.UnescapeString(post.Title.Rendered))
	fmt.Fprintf(w, "id: %d  status: %s", post.ID, post.Status)
	if post.FeaturedMedia != 0 {
		fmt.Fprintf(w, "  featured media: %d", post.FeaturedMedia)
	}
	fmt.Fprintln(w)
	if post.Link != "" {
		fmt.Fprintln(w, post.Link)
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(body))
	return nil
}

func htmlToMarkdown(s string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(s)
}
