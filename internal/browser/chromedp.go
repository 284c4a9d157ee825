// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const scrollScript = `window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`

// Renderer fetches fully rendered markup with headless Chrome. Every
// Fetch starts its own allocator and tab, so concurrent calls never share
// browser state.
type Renderer struct {
	config *BrowserConfig
	pool   *SlotPool
	logger logrus.FieldLogger

	statsMu sync.Mutex
	stats   BrowserStats
}

// NewRenderer creates a renderer, or returns ErrDisabled when rendering
// is turned off in config.
func NewRenderer(config *BrowserConfig, logger logrus.FieldLogger) (*Renderer, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if !config.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{
		config: config,
		pool:   NewSlotPool(config.MaxConcurrent),
		logger: logger,
	}, nil
}

// Name implements the fetch strategy interface
func (r *Renderer) Name() string { return "render" }

// Fetch navigates to url, waits for content, scrolls once, waits for the
// settle delay and returns the page markup.
func (r *Renderer) Fetch(ctx context.Context, url string) (string, error) {
	if err := r.pool.Acquire(ctx); err != nil {
		return "", fmt.Errorf("waiting for browser slot: %w", err)
	}
	defer r.pool.Release()

	start := time.Now()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	if r.config.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, r.config.Timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(r.config.ViewportWidth), int64(r.config.ViewportHeight)),
		chromedp.Navigate(url),
	)
	if err != nil {
		r.recordError()
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	r.waitForContent(tabCtx, url)

	var height float64
	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Evaluate(scrollScript, &height),
		chromedp.Sleep(r.config.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		r.recordError()
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	r.recordLoad(time.Since(start))
	return html, nil
}

// waitForContent waits for a content selector; a timeout is logged and
// the page is captured anyway.
func (r *Renderer) waitForContent(ctx context.Context, url string) {
	if r.config.WaitSelector == "" {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, r.config.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(r.config.WaitSelector, chromedp.ByQuery)); err != nil {
		r.statsMu.Lock()
		r.stats.TimeoutsOccurred++
		r.statsMu.Unlock()
		r.logger.WithField("url", url).Warn("content selector wait timed out")
	}
}

func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.WindowSize(r.config.ViewportWidth, r.config.ViewportHeight),
	}
	if r.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}
	if r.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.config.UserAgent))
	}
	if r.config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	return opts
}

func (r *Renderer) recordError() {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.Errors++
}

func (r *Renderer) recordLoad(d time.Duration) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.PagesLoaded++
	if r.stats.PagesLoaded == 1 {
		r.stats.AverageLoadTime = d
	} else {
		r.stats.AverageLoadTime = (r.stats.AverageLoadTime + d) / 2
	}
}

// Stats returns a copy of the rendering statistics
func (r *Renderer) Stats() BrowserStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

// Close releases the renderer's slot pool
func (r *Renderer) Close() error {
	return r.pool.Close()
}
