// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/blog-autopilot/internal/httputil"
	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// unsplashAPIURL is the Unsplash API root. Package-level var for test substitution.
var unsplashAPIURL = "https://api.unsplash.com"

// Unsplash searches photos with a Client-ID access key.
type Unsplash struct {
	AccessKey string
	Client    *http.Client
	UserAgent string
}

type unsplashSearchResponse struct {
	Results []unsplashPhoto `json:"results"`
}

type unsplashPhoto struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
	} `json:"urls"`
	Links struct {
		DownloadLocation string `json:"download_location"`
	} `json:"links"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// Search returns up to perPage landscape photos for query.
func (u *Unsplash) Search(ctx context.Context, query string, perPage int) ([]Image, error) {
	q := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(perPage)},
		"orientation": {"landscape"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unsplashAPIURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	u.authorize(req)

	resp, err := httputil.DoWithRetry(ctx, u.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("calling unsplash: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unsplash returned %d: %s", resp.StatusCode, string(body))
	}

	var sr unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding unsplash response: %w", err)
	}

	out := make([]Image, 0, len(sr.Results))
	for _, p := range sr.Results {
		desc := p.AltDescription
		if desc == "" {
			desc = p.Description
		}
		out = append(out, Image{
			ID:           p.ID,
			Description:  desc,
			URL:          p.URLs.Regular,
			TrackingURL:  p.Links.DownloadLocation,
			Photographer: p.User.Name,
			Provider:     types.ProviderUnsplash,
		})
	}
	return out, nil
}

// Best returns the top landscape hit for keyword, or nil when there is none.
func (u *Unsplash) Best(ctx context.Context, keyword string) (*Image, error) {
	results, err := u.Search(ctx, keyword, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	img := results[0]
	if img.Description == "" {
		img.Description = keyword
	}
	return &img, nil
}

// Download pings the tracking URL, as the Unsplash API guidelines require,
// and then fetches the image bytes. A failed ping does not stop the download.
func (u *Unsplash) Download(ctx context.Context, img *Image) ([]byte, error) {
	if img.TrackingURL != "" {
		if err := u.track(ctx, img.TrackingURL); err != nil {
			logger.G(ctx).WithError(err).WithField("image_id", img.ID).Debug("unsplash download tracking failed")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", u.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, u.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (u *Unsplash) track(ctx context.Context, trackingURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackingURL, nil)
	if err != nil {
		return err
	}
	u.authorize(req)
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (u *Unsplash) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Client-ID "+u.AccessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", u.UserAgent)
}
