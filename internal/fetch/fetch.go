// Package fetch downloads manga pages and normalizes them to the device width.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mangadrop/internal/config"
	"mangadrop/internal/logging"
	"mangadrop/internal/services"
)

// HTTPDoer issues HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads one page at a time. It is safe for concurrent use.
type Fetcher struct {
	client    HTTPDoer
	width     int
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "fetch")
	}
}

// New constructs a fetcher that resizes pages to width pixels. A zero timeout
// disables the per-fetch deadline.
func New(width int, timeout time.Duration, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		width:     width,
		timeout:   timeout,
		userAgent: strings.TrimSpace(userAgent),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig builds a fetcher from the [fetch] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Fetcher {
	return New(cfg.Fetch.PageWidth, cfg.FetchTimeout(), cfg.Fetch.UserAgent, opts...)
}

// FetchAndNormalize downloads remoteURL to destination, rescales it to the
// configured width, and rewrites it in place as PNG. It returns the absolute
// destination path. Failures are not retried.
func (f *Fetcher) FetchAndNormalize(ctx context.Context, remoteURL, destination string) (string, error) {
	abs, err := filepath.Abs(destination)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "fetch", "resolve destination", destination, err)
	}
	if err := f.download(ctx, remoteURL, abs); err != nil {
		_ = os.Remove(abs)
		return "", err
	}
	if err := NormalizeFile(abs, f.width); err != nil {
		_ = os.Remove(abs)
		return "", services.Wrap(services.ErrFetch, "fetch", "normalize", filepath.Base(abs), err)
	}
	f.logger.Debug("page normalized",
		logging.String("url", remoteURL),
		logging.String("path", abs),
	)
	return abs, nil
}

func (f *Fetcher) download(ctx context.Context, remoteURL, destination string) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return services.Wrap(services.ErrFetch, "fetch", "build request", remoteURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrFetch, "fetch", "request", remoteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return services.Wrap(services.ErrFetch, "fetch", "request", fmt.Sprintf("%s returned %s", remoteURL, resp.Status), nil)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return services.Wrap(services.ErrFetch, "fetch", "ensure destination dir", filepath.Dir(destination), err)
	}
	out, err := os.Create(destination)
	if err != nil {
		return services.Wrap(services.ErrFetch, "fetch", "create", destination, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return services.Wrap(services.ErrFetch, "fetch", "stream body", remoteURL, err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrFetch, "fetch", "close", destination, err)
	}
	return nil
}
