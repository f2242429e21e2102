package xyz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/eak1mov/go-livemap/async"
	"github.com/eak1mov/go-livemap/tile"
	"golang.org/x/sync/semaphore"
)

var ErrBadStatus = errors.New("livemap: unexpected http status")

// HTTPFetcher implements tile.Fetcher over plain HTTP GET requests. Requests
// are spread round-robin across the configured URL templates (one per domain).
type HTTPFetcher struct {
	templates []string
	next      atomic.Uint64
	client    *http.Client
	active    *semaphore.Weighted
	logger    *slog.Logger
}

type httpConfig struct {
	Client    *http.Client
	MaxActive int64
	Logger    *slog.Logger
}

type HTTPOption func(*httpConfig)

func WithClient(client *http.Client) HTTPOption {
	return func(c *httpConfig) { c.Client = client }
}

// WithMaxActive bounds the number of downloads in flight at once.
func WithMaxActive(n int) HTTPOption {
	return func(c *httpConfig) { c.MaxActive = int64(n) }
}

func WithLogger(logger *slog.Logger) HTTPOption {
	return func(c *httpConfig) { c.Logger = logger }
}

// NewHTTPFetcher creates a fetcher for URL templates such as
// "https://a.tile.example.org/{z}/{x}/{y}.png".
func NewHTTPFetcher(templates []string, opts ...HTTPOption) (*HTTPFetcher, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: no url templates", ErrInvalidPattern)
	}
	for _, template := range templates {
		if err := validatePattern(template); err != nil {
			return nil, err
		}
	}

	config := httpConfig{
		Client:    http.DefaultClient,
		MaxActive: 8,
		Logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &HTTPFetcher{
		templates: templates,
		client:    config.Client,
		active:    semaphore.NewWeighted(max(config.MaxActive, 1)),
		logger:    config.Logger,
	}, nil
}

// URL returns the URL of the next request for the tile, advancing the domain rotation.
func (f *HTTPFetcher) URL(tileID tile.ID) string {
	i := f.next.Add(1) - 1
	return formatPattern(f.templates[i%uint64(len(f.templates))], tileID)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, tileID tile.ID) *async.Future[[]byte] {
	url := f.URL(tileID)
	return async.Go(func() ([]byte, error) {
		if err := f.active.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.active.Release(1)

		f.logger.Debug("livemap: fetch", "tile", tileID, "url", url)
		return f.get(ctx, url)
	})
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
