// internal/scraper/types.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Common errors
var (
	ErrFetchExhausted    = errors.New("all fetch attempts exhausted")
	ErrInvalidContent    = errors.New("page content failed validation")
	ErrRenderUnavailable = errors.New("render strategy not configured")
	ErrEmptyContent      = errors.New("page content below minimum length")
	ErrNoLink            = errors.New("record has no detail link")
)

// Strategy names
const (
	StrategyLightweight = "lightweight"
	StrategyRender      = "render"
)

// Strategy fetches the markup of a URL
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// ResolveOptions controls a single document resolution
type ResolveOptions struct {
	// ForceRender skips the caches and the lightweight strategy
	ForceRender bool
}

// RunOptions are the recognized crawl options
type RunOptions struct {
	OutputDir          string
	Page               int // 0 = all pages, -1 = sample of the first page
	Workers            int // 0 = auto
	EnableTextAnalysis bool
	BatchSize          int
	DeptCode           string
	MaxPages           int
	SampleOnly         bool
}

// HTTPError represents a non-success HTTP response
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Attempt    int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s, Attempt: %d)",
		e.StatusCode, e.Status, e.URL, e.Attempt)
}

// IsRetryableError reports whether a failed request should be retried:
// server errors, rate limiting and transport failures are, other HTTP
// statuses and cancellation are not.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError ||
			httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// IsRateLimited reports whether err is a 429 response
func IsRateLimited(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

// ClassifyFetchError maps a fetch failure to the record error status
func ClassifyFetchError(err error) types.ErrorStatus {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return types.StatusNormal
	case errors.As(err, &httpErr):
		return types.StatusHTTPStatusError
	default:
		return types.StatusRequestError
	}
}
