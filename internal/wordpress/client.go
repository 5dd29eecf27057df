// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wordpress is a small client for the WordPress REST API (wp/v2)
// authenticated with an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/blog-autopilot/internal/httputil"
	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

const (
	apiPath          = "/wp-json/wp/v2"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "blog-autopilot/0.1"
	maxErrorBody     = 512
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordpress %s %s returned %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one WordPress site.
type Client struct {
	baseURL    string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
}

// New returns a client for the site in cfg.
func New(cfg types.WordPressConfig) (*Client, error) {
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("wordpress site URL is required")
	}
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, fmt.Errorf("wordpress username and application password are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.SiteURL, "/") + apiPath,
		username:   cfg.Username,
		password:   cfg.AppPassword,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns the API root, e.g. https://example.com/wp-json/wp/v2.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostRequest holds the fields of a post create call.
type PostRequest struct {
	Title      string           `json:"title,omitempty"`
	Content    string           `json:"content,omitempty"`
	Status     types.PostStatus `json:"status,omitempty"`
	Categories []int            `json:"categories,omitempty"`
	Tags       []int            `json:"tags,omitempty"`
}

// CreatePost creates a new post. Status defaults to draft.
func (c *Client) CreatePost(ctx context.Context, p PostRequest) (*types.Post, error) {
	if p.Status == "" {
		p.Status = types.StatusDraft
	}
	var post types.Post
	if err := c.doJSON(ctx, http.MethodPost, "/posts", nil, p, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost fetches a post by ID.
func (c *Client) GetPost(ctx context.Context, id int) (*types.Post, error) {
	var post types.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts/"+strconv.Itoa(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies a partial update. Only keys present in fields are sent.
func (c *Client) UpdatePost(ctx context.Context, id int, fields map[string]any) (*types.Post, error) {
	var post types.Post
	if err := c.doJSON(ctx, http.MethodPost, "/posts/"+strconv.Itoa(id), nil, fields, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// SetFeaturedImage sets the post's featured media.
func (c *Client) SetFeaturedImage(ctx context.Context, postID, mediaID int) (*types.Post, error) {
	return c.UpdatePost(ctx, postID, map[string]any{"featured_media": mediaID})
}

// UploadMedia uploads a JPEG and, when altText is non-empty, sets its alt
// text in a follow-up request. A failed alt-text update is logged, not returned.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, altText string) (*types.Media, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/media", nil, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	var media types.Media
	if err := c.send(ctx, req, &media); err != nil {
		return nil, err
	}

	if altText != "" {
		var updated types.Media
		err := c.doJSON(ctx, http.MethodPost, "/media/"+strconv.Itoa(media.ID), nil, map[string]string{"alt_text": altText}, &updated)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("media_id", media.ID).Warn("setting media alt text failed")
		} else {
			media.AltText = updated.AltText
		}
	}
	return &media, nil
}

// GetOrCreateTags resolves tag names to IDs, creating tags that do not
// exist. Only the first search hit is compared, case-insensitively. Names
// that can be neither found nor created are logged and omitted.
func (c *Client) GetOrCreateTags(ctx context.Context, names []string) ([]int, error) {
	var ids []int
	for _, name := range names {
		var found []types.Tag
		q := url.Values{"search": {name}}
		if err := c.doJSON(ctx, http.MethodGet, "/tags", q, nil, &found); err == nil {
			if len(found) > 0 && strings.EqualFold(found[0].Name, name) {
				ids = append(ids, found[0].ID)
				continue
			}
		} else if ctx.Err() != nil {
			return ids, ctx.Err()
		}

		var created types.Tag
		if err := c.doJSON(ctx, http.MethodPost, "/tags", nil, map[string]string{"name": name}, &created); err != nil {
			logger.G(ctx).WithError(err).WithField("tag", name).Warn("creating tag failed")
			continue
		}
		ids = append(ids, created.ID)
	}
	return ids, nil
}

// ListPosts pages through all posts until an empty page or an error page.
func (c *Client) ListPosts(ctx context.Context, perPage int) ([]types.Post, error) {
	if perPage <= 0 {
		perPage = 100
	}
	var all []types.Post
	for page := 1; ; page++ {
		q := url.Values{
			"per_page": {strconv.Itoa(perPage)},
			"page":     {strconv.Itoa(page)},
		}
		var posts []types.Post
		if err := c.doJSON(ctx, http.MethodGet, "/posts", q, nil, &posts); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				// WordPress answers past-the-end pages with 400.
				break
			}
			return all, err
		}
		if len(posts) == 0 {
			break
		}
		all = append(all, posts...)
	}
	return all, nil
}

// TestConnection verifies the credentials with a one-post listing.
func (c *Client) TestConnection(ctx context.Context) error {
	var posts []types.Post
	q := url.Values{"per_page": {"1"}}
	if err := c.doJSON(ctx, http.MethodGet, "/posts", q, nil, &posts); err != nil {
		return fmt.Errorf("wordpress connection test: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *http.Request, out any) error {
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return fmt.Errorf("calling wordpress %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding wordpress response: %w", err)
	}
	return nil
}
