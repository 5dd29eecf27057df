// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one content cycle: draw the next theme, draft an
// article, post it to WordPress, attach a featured image, and consume the
// theme.
//
// Posts are created as drafts unless auto-publish is enabled. The theme is
// marked used only after the post exists, so a failed run leaves it in the
// pool for the next attempt.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/blog-autopilot/internal/images"
	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/internal/wordpress"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// ThemeStore is the subset of *theme.Store the pipeline uses.
type ThemeStore interface {
	Next(ctx context.Context) (types.Theme, error)
	MarkUsed(id int) error
	Save() error
}

// ArticleWriter drafts an article for a theme. *llm.ArticleGenerator
// implements it.
type ArticleWriter interface {
	GenerateArticle(ctx context.Context, t types.Theme) (types.Article, error)
}

// Publisher is the subset of *wordpress.Client the pipeline uses.
type Publisher interface {
	images.Uploader
	TestConnection(ctx context.Context) error
	GetOrCreateTags(ctx context.Context, names []string) ([]int, error)
	CreatePost(ctx context.Context, p wordpress.PostRequest) (*types.Post, error)
}

// Recorder stores run outcomes. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, r types.Run) error
}

// Pipeline wires the stages together. Images and History may be nil.
type Pipeline struct {
	Themes    ThemeStore
	Writer    ArticleWriter
	WordPress Publisher
	Images    images.Source
	History   Recorder

	// AutoPublish creates posts with status publish instead of draft.
	AutoPublish bool

	// Categories and Tags are applied to every post.
	Categories []int
	Tags       []string

	// FallbackKeyword is the last image search term tried.
	FallbackKeyword string

	// Out receives progress lines. Nil discards them.
	Out io.Writer

	Now   func() time.Time
	NewID func() string
}

// New builds a pipeline from cfg and the given stages.
func New(cfg types.PipelineConfig, themes ThemeStore, writer ArticleWriter, wp Publisher, src images.Source, rec Recorder, out io.Writer) *Pipeline {
	return &Pipeline{
		Themes:          themes,
		Writer:          writer,
		WordPress:       wp,
		Images:          src,
		History:         rec,
		AutoPublish:     cfg.WordPress.AutoPublish,
		Categories:      cfg.WordPress.Categories,
		Tags:            cfg.WordPress.Tags,
		FallbackKeyword: cfg.Images.FallbackKeyword,
		Out:             out,
	}
}

// Run executes one full cycle and returns its record. The record is also
// written to History when one is configured, whether or not the run
// succeeded. theme.ErrEmptyPool is returned unchanged.
func (p *Pipeline) Run(ctx context.Context) (run types.Run, err error) {
	run = types.Run{ID: p.newID(), StartedAt: p.now()}
	ctx = logger.WithField(ctx, "run_id", run.ID)
	log := logger.G(ctx)

	defer func() {
		run.FinishedAt = p.now()
		if err != nil {
			run.Error = err.Error()
			log.WithError(err).Error("pipeline run failed")
		}
		p.record(ctx, run)
	}()

	if err := p.WordPress.TestConnection(ctx); err != nil {
		return run, fmt.Errorf("testing WordPress connection: %w", err)
	}
	p.printf("WordPress connection OK\n")

	t, err := p.Themes.Next(ctx)
	if err != nil {
		return run, err
	}
	run.ThemeID, run.ThemeTitle = t.ID, t.Title
	ctx = logger.WithField(ctx, "theme_id", t.ID)
	log = logger.G(ctx)
	p.printf("theme: %d %s\n", t.ID, t.Title)

	article, err := p.Writer.GenerateArticle(ctx, t)
	if err != nil {
		return run, err
	}
	p.printf("article generated (%d chars)\n", len([]rune(article.Content)))

	status := types.StatusDraft
	if p.AutoPublish {
		status = types.StatusPublish
	}
	post, err := p.WordPress.CreatePost(ctx, wordpress.PostRequest{
		Title:      article.Title,
		Content:    article.Content,
		Status:     status,
		Categories: p.Categories,
		Tags:       p.tagIDs(ctx),
	})
	if err != nil {
		return run, fmt.Errorf("creating post: %w", err)
	}
	run.PostID, run.PostLink = post.ID, post.Link
	run.PostStatus = post.Status
	if run.PostStatus == "" {
		run.PostStatus = status
	}
	log.WithField("post_id", post.ID).WithField("status", run.PostStatus).Info("post created")
	p.printf("posted: id=%d status=%s %s\n", post.ID, run.PostStatus, post.Link)

	if p.Images != nil {
		run.MediaID = images.AttachFeatured(ctx, p.Images, p.WordPress, post.ID, t.Keywords, p.FallbackKeyword)
		if run.MediaID != 0 {
			p.printf("featured image: media id %d\n", run.MediaID)
		}
	}

	if err := p.Themes.MarkUsed(t.ID); err != nil {
		return run, p.unsavedTheme(log, t.ID, post.ID, fmt.Errorf("marking theme %d used after creating post %d: %w", t.ID, post.ID, err))
	}
	if err := p.Themes.Save(); err != nil {
		return run, p.unsavedTheme(log, t.ID, post.ID, fmt.Errorf("saving themes after creating post %d: %w", post.ID, err))
	}
	p.printf("theme %d marked used\n", t.ID)
	return run, nil
}

// DryRun draws the next theme and drafts its article without posting it
// or consuming the theme. Replenishment may still add and save new themes.
func (p *Pipeline) DryRun(ctx context.Context) (types.Article, error) {
	t, err := p.Themes.Next(ctx)
	if err != nil {
		return types.Article{}, err
	}
	p.printf("theme: %d %s\n", t.ID, t.Title)

	article, err := p.Writer.GenerateArticle(ctx, t)
	if err != nil {
		return types.Article{}, err
	}
	return article, nil
}

// unsavedTheme logs a post whose theme is still unused on disk, so the
// theme can be marked by hand with "themes mark-used".
func (p *Pipeline) unsavedTheme(log *logrus.Entry, themeID, postID int, err error) error {
	log.WithError(err).WithField("post_id", postID).
		Errorf("post created but theme not recorded as used; run: themes mark-used %d", themeID)
	p.printf("warning: post %d created but theme %d is still unused\n", postID, themeID)
	return err
}

// tagIDs resolves the configured tag names. Failures are logged and the
// post is created without tags.
func (p *Pipeline) tagIDs(ctx context.Context) []int {
	if len(p.Tags) == 0 {
		return nil
	}
	ids, err := p.WordPress.GetOrCreateTags(ctx, p.Tags)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("resolving tags failed, posting without tags")
		return nil
	}
	return ids
}

func (p *Pipeline) record(ctx context.Context, run types.Run) {
	if p.History == nil {
		return
	}
	if err := p.History.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.G(ctx).WithError(err).Warn("recording run history failed")
	}
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Pipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}
