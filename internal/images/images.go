// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package images finds stock photos for an article and attaches the
// first usable one to a WordPress post as its featured image.
package images

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultUserAgent       = "blog-autopilot/0.1"
	DefaultFallbackKeyword = "music production"
)

// Image is a search hit from a stock photo service.
type Image struct {
	ID           string
	Description  string
	URL          string
	TrackingURL  string
	Photographer string
	Provider     types.ImageProvider
}

// Source searches a photo service and downloads images from it.
type Source interface {
	// Best returns the top hit for keyword, or nil when there is none.
	Best(ctx context.Context, keyword string) (*Image, error)
	Download(ctx context.Context, img *Image) ([]byte, error)
}

// Uploader is the slice of the WordPress client needed to attach media.
type Uploader interface {
	UploadMedia(ctx context.Context, data []byte, filename, altText string) (*types.Media, error)
	SetFeaturedImage(ctx context.Context, postID, mediaID int) (*types.Post, error)
}

// NewSource builds the Source selected by cfg.Provider. It returns nil,
// nil when images are disabled.
func NewSource(cfg types.ImageConfig) (Source, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	switch cfg.Provider {
	case types.ProviderNone:
		return nil, nil
	case types.ProviderUnsplash:
		if cfg.UnsplashAccessKey == "" {
			return nil, fmt.Errorf("unsplash access key is required")
		}
		return &Unsplash{AccessKey: cfg.UnsplashAccessKey, Client: client, UserAgent: ua}, nil
	case types.ProviderShutterstock:
		if cfg.ShutterstockConsumerKey == "" || cfg.ShutterstockConsumerSecret == "" {
			return nil, fmt.Errorf("shutterstock consumer key and secret are required")
		}
		return &Shutterstock{
			ConsumerKey:    cfg.ShutterstockConsumerKey,
			ConsumerSecret: cfg.ShutterstockConsumerSecret,
			AccessToken:    cfg.ShutterstockAccessToken,
			Client:         client,
			UserAgent:      ua,
		}, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q: use unsplash or shutterstock", cfg.Provider)
	}
}

// AttachFeatured tries each keyword, then fallback, until one yields an
// image that downloads, uploads and attaches cleanly. It returns the
// WordPress media ID, or 0 when every keyword failed. Per-keyword errors
// are logged and never returned.
func AttachFeatured(ctx context.Context, src Source, wp Uploader, postID int, keywords []string, fallback string) int {
	if fallback == "" {
		fallback = DefaultFallbackKeyword
	}
	candidates := append(append([]string{}, keywords...), fallback)

	for _, kw := range candidates {
		log := logger.G(ctx).WithField("keyword", kw).WithField("post_id", postID)

		mediaID, err := attachOne(ctx, src, wp, postID, kw)
		if err != nil {
			log.WithError(err).Warn("featured image attempt failed")
			continue
		}
		if mediaID == 0 {
			log.Debug("no image found")
			continue
		}
		log.WithField("media_id", mediaID).Info("featured image attached")
		return mediaID
	}

	logger.G(ctx).WithField("post_id", postID).Warn("could not attach a featured image")
	return 0
}

func attachOne(ctx context.Context, src Source, wp Uploader, postID int, keyword string) (int, error) {
	img, err := src.Best(ctx, keyword)
	if err != nil {
		return 0, fmt.Errorf("searching: %w", err)
	}
	if img == nil {
		return 0, nil
	}

	data, err := src.Download(ctx, img)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", img.ID, err)
	}

	alt := img.Description
	if alt == "" {
		alt = keyword
	}
	filename := fmt.Sprintf("%s_%s.jpg", img.Provider, img.ID)
	media, err := wp.UploadMedia(ctx, data, filename, alt)
	if err != nil {
		return 0, fmt.Errorf("uploading: %w", err)
	}

	if _, err := wp.SetFeaturedImage(ctx, postID, media.ID); err != nil {
		return 0, fmt.Errorf("setting featured media: %w", err)
	}
	return media.ID, nil
}
