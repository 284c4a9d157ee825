// internal/scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
)

const (
	// DefaultFetchAttempts is the number of lightweight attempts per URL
	DefaultFetchAttempts = 3

	// MinRenderedText is the minimum text length of a rendered page
	MinRenderedText = 100

	jsBodyThreshold = 2000
)

var (
	// ContentMarkers are the domain keywords a valid page must contain
	ContentMarkers = []string{"민원", "서비스"}

	jsIndicators = []string{
		"document.getElementById",
		"$(document).ready",
		"<body onload=",
		"window.onload",
		"javascript:",
	}
)

// MetricsRecorder receives fetch observations
type MetricsRecorder interface {
	FetchAttempt(strategy, outcome string, elapsed time.Duration)
	CacheHit(kind string)
}

type noopMetrics struct{}

func (noopMetrics) FetchAttempt(string, string, time.Duration) {}
func (noopMetrics) CacheHit(string)                            {}

// Fetcher resolves URLs to documents. It prefers cached documents, then
// the strategy that last worked, then lightweight attempts with backoff,
// escalating to the render strategy when the content looks incomplete.
type Fetcher struct {
	light    Strategy
	render   Strategy
	cache    *PageCache
	retry    *rerrors.Service
	attempts int
	metrics  MetricsRecorder
	logger   logrus.FieldLogger
}

// FetcherConfig tunes the fetch orchestration
type FetcherConfig struct {
	Attempts int
	Retry    rerrors.RetryConfig
}

// NewFetcher creates a fetcher. render may be nil, in which case pages
// are only fetched with the lightweight strategy.
func NewFetcher(light, render Strategy, cfg FetcherConfig, logger logrus.FieldLogger) *Fetcher {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultFetchAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry = rerrors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		light:    light,
		render:   render,
		cache:    NewPageCache(),
		retry:    rerrors.NewService(cfg.Retry).WithThrottled(IsRateLimited),
		attempts: cfg.Attempts,
		metrics:  noopMetrics{},
		logger:   logger,
	}
}

// WithMetrics attaches a metrics recorder
func (f *Fetcher) WithMetrics(m MetricsRecorder) *Fetcher {
	if m != nil {
		f.metrics = m
	}
	return f
}

// WithRetryService replaces the backoff service, mainly for tests
func (f *Fetcher) WithRetryService(s *rerrors.Service) *Fetcher {
	f.retry = s.WithThrottled(IsRateLimited)
	return f
}

// Cache returns the shared page cache
func (f *Fetcher) Cache() *PageCache { return f.cache }

// Evict drops both cache entries of url
func (f *Fetcher) Evict(url string) { f.cache.Evict(url) }

// CanRender reports whether a render strategy is configured
func (f *Fetcher) CanRender() bool { return f.render != nil }

// Resolve returns the parsed document of url
func (f *Fetcher) Resolve(ctx context.Context, url string, opts ResolveOptions) (*goquery.Document, error) {
	logger := f.logger.WithField("url", url)

	if opts.ForceRender {
		doc, err := f.fetchRendered(ctx, url)
		if err != nil {
			f.cache.MarkFailed(url)
			return nil, err
		}
		f.cache.Store(url, StrategyRender, doc)
		return doc, nil
	}

	if doc, ok := f.cache.Document(url); ok {
		f.metrics.CacheHit("document")
		logger.Debug("cached document used")
		return doc, nil
	}

	if name, ok := f.cache.Strategy(url); ok {
		f.metrics.CacheHit("strategy")
		doc, err := f.tryRemembered(ctx, url, name)
		if err == nil {
			f.cache.Store(url, name, doc)
			return doc, nil
		}
		logger.WithError(err).WithField("strategy", name).Warn("remembered strategy failed, re-resolving")
		f.cache.ForgetStrategy(url)
	}

	return f.resolveFull(ctx, url, logger)
}

func (f *Fetcher) tryRemembered(ctx context.Context, url, name string) (*goquery.Document, error) {
	if name == StrategyRender {
		return f.fetchRendered(ctx, url)
	}
	html, err := f.fetchLight(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	if !contentValid(doc) {
		return nil, ErrInvalidContent
	}
	return doc, nil
}

func (f *Fetcher) resolveFull(ctx context.Context, url string, logger logrus.FieldLogger) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"delay":   f.retry.DelayAfter(lastErr, attempt),
			}).Info("retrying fetch")
			if err := f.retry.WaitAfter(ctx, lastErr, attempt); err != nil {
				return nil, err
			}
		}

		html, err := f.fetchLight(ctx, url)
		if err != nil {
			lastErr = err
			logger.WithError(err).WithField("attempt", attempt+1).Warn("lightweight fetch failed")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		doc, err := parse(html)
		if err != nil {
			lastErr = err
			continue
		}

		if !contentValid(doc) || NeedsRender(html) {
			logger.Info("script-dependent or invalid page, escalating to render")
			if f.render != nil {
				f.cache.Remember(url, StrategyRender)
			}
			rendered, err := f.fetchRendered(ctx, url)
			if err == nil {
				f.cache.Store(url, StrategyRender, rendered)
				return rendered, nil
			}
			lastErr = err
			if errors.Is(err, ErrRenderUnavailable) && contentValid(doc) {
				f.cache.Store(url, StrategyLightweight, doc)
				return doc, nil
			}
			continue
		}

		f.cache.Store(url, StrategyLightweight, doc)
		return doc, nil
	}

	if f.render != nil {
		logger.Warn("lightweight attempts exhausted, final render attempt")
		doc, err := f.fetchRendered(ctx, url)
		if err == nil {
			f.cache.Store(url, StrategyRender, doc)
			return doc, nil
		}
		lastErr = err
	}

	f.cache.MarkFailed(url)
	if lastErr == nil {
		lastErr = ErrInvalidContent
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrFetchExhausted, url, lastErr)
}

// Page fetches url once with the lightweight strategy, bypassing the
// cache. Search pages are server rendered and never escalated.
func (f *Fetcher) Page(ctx context.Context, url string) (*goquery.Document, error) {
	html, err := f.fetchLight(ctx, url)
	if err != nil {
		return nil, err
	}
	return parse(html)
}

func (f *Fetcher) fetchLight(ctx context.Context, url string) (string, error) {
	start := time.Now()
	html, err := f.light.Fetch(ctx, url)
	f.metrics.FetchAttempt(f.light.Name(), outcome(err), time.Since(start))
	return html, err
}

// fetchRendered runs the render strategy once and validates the
// rendered text length. Each URL is judged on its own result.
func (f *Fetcher) fetchRendered(ctx context.Context, url string) (*goquery.Document, error) {
	if f.render == nil {
		return nil, ErrRenderUnavailable
	}
	start := time.Now()
	doc, err := f.renderOnce(ctx, url)
	f.metrics.FetchAttempt(f.render.Name(), outcome(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return doc, nil
}

func (f *Fetcher) renderOnce(ctx context.Context, url string) (*goquery.Document, error) {
	html, err := f.render.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	if len([]rune(strings.TrimSpace(doc.Text()))) <= MinRenderedText {
		return nil, ErrEmptyContent
	}
	return doc, nil
}

// NeedsRender applies the script-dependency heuristic: a script
// indicator together with a table or iframe in a small body.
func NeedsRender(html string) bool {
	if len(html) >= jsBodyThreshold {
		return false
	}
	if !strings.Contains(html, "<table") && !strings.Contains(html, "iframe") {
		return false
	}
	return containsAny(html, jsIndicators...)
}

func contentValid(doc *goquery.Document) bool {
	return containsAny(doc.Text(), ContentMarkers...)
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
