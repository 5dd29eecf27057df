// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/blog-autopilot/internal/httputil"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// shutterstockAPIURL is the Shutterstock v2 API root. Package-level var for test substitution.
var shutterstockAPIURL = "https://api.shutterstock.com/v2"

// Shutterstock searches with consumer-key Basic auth and licenses images
// with an OAuth access token. Licensing falls back to Basic auth when no
// token is configured.
type Shutterstock struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	Client         *http.Client
	UserAgent      string
}

type shutterstockSearchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Assets      struct {
			Preview struct {
				URL string `json:"url"`
			} `json:"preview"`
		} `json:"assets"`
		Contributor struct {
			ID string `json:"id"`
		} `json:"contributor"`
	} `json:"data"`
}

type shutterstockLicenseRequest struct {
	Images []shutterstockLicenseImage `json:"images"`
}

type shutterstockLicenseImage struct {
	ImageID        string `json:"image_id"`
	SubscriptionID string `json:"subscription_id"`
	Size           string `json:"size"`
}

type shutterstockLicenseResponse struct {
	Data []struct {
		Download *struct {
			URL string `json:"url"`
		} `json:"download"`
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"data"`
}

// Search returns up to perPage popular horizontal photos for query.
func (s *Shutterstock) Search(ctx context.Context, query string, perPage int) ([]Image, error) {
	q := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(perPage)},
		"image_type":  {"photo"},
		"sort":        {"popular"},
		"orientation": {"horizontal"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shutterstockAPIURL+"/images/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.ConsumerKey, s.ConsumerSecret)
	req.Header.Set("User-Agent", s.UserAgent)

	var sr shutterstockSearchResponse
	if err := s.doJSON(ctx, req, &sr); err != nil {
		return nil, err
	}

	out := make([]Image, 0, len(sr.Data))
	for _, d := range sr.Data {
		photographer := d.Contributor.ID
		if photographer == "" {
			photographer = "Shutterstock"
		}
		out = append(out, Image{
			ID:           d.ID,
			Description:  d.Description,
			URL:          d.Assets.Preview.URL,
			Photographer: photographer,
			Provider:     types.ProviderShutterstock,
		})
	}
	return out, nil
}

// Best returns the top hit for keyword, or nil when there is none.
func (s *Shutterstock) Best(ctx context.Context, keyword string) (*Image, error) {
	results, err := s.Search(ctx, keyword, 1)
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

// Download licenses the image at medium size with automatic subscription
// selection, then fetches the licensed file.
func (s *Shutterstock) Download(ctx context.Context, img *Image) ([]byte, error) {
	body, err := json.Marshal(shutterstockLicenseRequest{
		Images: []shutterstockLicenseImage{{ImageID: img.ID, SubscriptionID: "auto", Size: "medium"}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling license request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, shutterstockAPIURL+"/images/licenses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorizeLicensing(req)

	var lr shutterstockLicenseResponse
	if err := s.doJSON(ctx, req, &lr); err != nil {
		return nil, fmt.Errorf("licensing image %s: %w", img.ID, err)
	}
	downloadURL, err := licensedURL(lr)
	if err != nil {
		return nil, fmt.Errorf("licensing image %s: %w", img.ID, err)
	}

	dl, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	s.authorizeLicensing(dl)

	resp, err := httputil.DoWithRetry(ctx, s.Client, dl, 0)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func licensedURL(lr shutterstockLicenseResponse) (string, error) {
	if len(lr.Data) == 0 {
		return "", fmt.Errorf("license response has no data")
	}
	first := lr.Data[0]
	switch {
	case first.Error != "":
		return "", fmt.Errorf("license refused: %s", first.Error)
	case first.Download != nil && first.Download.URL != "":
		return first.Download.URL, nil
	case first.URL != "":
		return first.URL, nil
	}
	return "", fmt.Errorf("license response has no download URL")
}

func (s *Shutterstock) authorizeLicensing(req *http.Request) {
	req.Header.Set("User-Agent", s.UserAgent)
	if s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
		return
	}
	req.SetBasicAuth(s.ConsumerKey, s.ConsumerSecret)
}

func (s *Shutterstock) doJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return fmt.Errorf("calling shutterstock: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shutterstock returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding shutterstock response: %w", err)
	}
	return nil
}
