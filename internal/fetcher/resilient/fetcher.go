// Package resilient wraps a page fetcher with per-domain throttling, a
// bounded retry loop with a backoff table, and rotating client identities.
// No failure mode escapes this layer: every outcome resolves to "payload" or
// "no payload".
package resilient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/telemetry"
)

// DefaultBackoff is the wait table consulted by retry index, clamped at the
// last entry.
var DefaultBackoff = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// DefaultUserAgents is the identity pool rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Throttler gates request timing per domain and observes outcomes.
type Throttler interface {
	Wait(ctx context.Context, url string) error
	RecordSuccess(url string)
	RecordFailure(url string)
}

// Promoter decides whether a fetched page warrants a headless refetch.
type Promoter interface {
	ShouldPromote(harvester.FetchResponse) bool
}

// Config controls retry behavior.
type Config struct {
	// MaxRetries bounds retries after the first attempt.
	MaxRetries int
	Backoff    []time.Duration
	UserAgents []string
}

// Fetcher is the default PageFetcher implementation of the harvest engine.
type Fetcher struct {
	inner    harvester.PageFetcher
	headless harvester.PageFetcher
	detector Promoter
	throttle Throttler
	cfg      Config
	logger   *zap.Logger
	pause    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHeadless enables promotion to a headless refetch for pages the
// detector flags as client-side rendered.
func WithHeadless(fetcher harvester.PageFetcher, det Promoter) Option {
	return func(f *Fetcher) {
		f.headless = fetcher
		f.detector = det
	}
}

// New builds a Fetcher around an inner transport fetcher.
func New(inner harvester.PageFetcher, throttle Throttler, cfg Config, logger *zap.Logger, opts ...Option) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = DefaultBackoff
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		inner:    inner,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
		pause:    timerPause,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches url and returns its payload, or nothing when every retry is
// exhausted or the server answered with a permanent status.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, bool) {
	resp, ok := f.fetch(ctx, url)
	if !ok {
		return nil, false
	}
	return resp.Body, true
}

// Fetch implements harvester.PageFetcher so the resilient layer can stand in
// wherever a plain fetcher is expected.
func (f *Fetcher) Fetch(ctx context.Context, req harvester.FetchRequest) (harvester.FetchResponse, error) {
	resp, ok := f.fetch(ctx, req.URL)
	if !ok {
		if err := context.Cause(ctx); err != nil {
			return harvester.FetchResponse{}, err
		}
		return harvester.FetchResponse{}, fmt.Errorf("fetch %s: retries exhausted", req.URL)
	}
	return resp, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (harvester.FetchResponse, bool) {
	domain := harvester.Domain(url)
	attempts := f.cfg.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := f.throttle.Wait(ctx, url); err != nil {
			return harvester.FetchResponse{}, false
		}

		resp, err := f.inner.Fetch(ctx, harvester.FetchRequest{
			URL:       url,
			UserAgent: f.cfg.UserAgents[rand.IntN(len(f.cfg.UserAgents))],
		})
		if err != nil {
			f.throttle.RecordFailure(url)
			telemetry.ObservePage(domain, string(harvester.FetchSoftFailure))
			f.logger.Debug("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !f.backoff(ctx, attempt) {
				return harvester.FetchResponse{}, false
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			f.throttle.RecordSuccess(url)
			telemetry.ObservePage(domain, string(harvester.FetchSuccess))
			return f.maybePromote(ctx, url, resp), true

		case resp.StatusCode == http.StatusTooManyRequests:
			// Rate-limit responses are expected, not failures; honor the
			// backoff table and try again.
			f.logger.Warn("rate limited", zap.String("url", url), zap.Int("attempt", attempt))
			if !f.backoff(ctx, attempt) {
				return harvester.FetchResponse{}, false
			}

		case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
			telemetry.ObservePage(domain, string(harvester.FetchHardFailure))
			f.logger.Warn("permanent fetch failure",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
			)
			return harvester.FetchResponse{}, false

		default:
			f.throttle.RecordFailure(url)
			telemetry.ObservePage(domain, string(harvester.FetchSoftFailure))
			f.logger.Warn("unexpected status",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt),
			)
			if !f.backoff(ctx, attempt) {
				return harvester.FetchResponse{}, false
			}
		}
	}

	f.logger.Warn("fetch abandoned after retries", zap.String("url", url))
	return harvester.FetchResponse{}, false
}

// backoff sleeps for the table entry at attempt, clamped to the last entry.
// Returns false when the context ended during the wait.
func (f *Fetcher) backoff(ctx context.Context, attempt int) bool {
	idx := attempt
	if idx >= len(f.cfg.Backoff) {
		idx = len(f.cfg.Backoff) - 1
	}
	return f.pause(ctx, f.cfg.Backoff[idx]) == nil
}

func (f *Fetcher) maybePromote(ctx context.Context, url string, resp harvester.FetchResponse) harvester.FetchResponse {
	if f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(resp) {
		return resp
	}
	rendered, err := f.headless.Fetch(ctx, harvester.FetchRequest{URL: url})
	if err != nil || rendered.StatusCode != http.StatusOK {
		f.logger.Warn("headless promotion failed", zap.String("url", url), zap.Error(err))
		return resp
	}
	f.logger.Info("headless promotion applied", zap.String("url", url))
	return rendered
}

func timerPause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
