// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PostStatus is the WordPress publication state of a post.
type PostStatus string

const (
	StatusDraft   PostStatus = "draft"
	StatusPublish PostStatus = "publish"
	StatusPrivate PostStatus = "private"
)

// Article is a generated blog post body ready to be sent to the CMS.
type Article struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	ThemeID int    `json:"theme_id" yaml:"theme_id"`
}

// Rendered wraps WordPress fields returned as {"rendered": "..."}.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Post is the subset of a WordPress post resource the pipeline uses.
type Post struct {
	ID            int        `json:"id"`
	Link          string     `json:"link"`
	Status        PostStatus `json:"status"`
	Title         Rendered   `json:"title"`
	Content       Rendered   `json:"content"`
	FeaturedMedia int        `json:"featured_media"`
}

// Media is the subset of a WordPress media resource the pipeline uses.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text"`
}

// Tag is a WordPress post tag.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Run records one pipeline invocation.
type Run struct {
	ID         string     `json:"id"`
	ThemeID    int        `json:"theme_id"`
	ThemeTitle string     `json:"theme_title"`
	PostID     int        `json:"post_id"`
	PostStatus PostStatus `json:"post_status"`
	PostLink   string     `json:"post_link"`
	MediaID    int        `json:"media_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Error      string     `json:"error,omitempty"`
}

// Succeeded reports whether the run created a post without error.
func (r Run) Succeeded() bool {
	return r.Error == "" && r.PostID != 0
}
