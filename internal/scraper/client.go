// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// HTTPClient is the lightweight fetch strategy: a plain GET with browser
// headers, request pacing and user-agent rotation.
type HTTPClient struct {
	client      *resty.Client
	userAgents  []string
	currentUA   int
	uaMutex     sync.Mutex
	rateLimiter *rate.Limiter
}

// ClientConfig defines configuration options for the HTTP client
type ClientConfig struct {
	Timeout    time.Duration
	UserAgents []string
	Headers    map[string]string
	RateLimit  float64 // requests per second
	RateBurst  int
}

// DefaultClientConfig returns the portal session settings
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    15 * time.Second,
		UserAgents: getDefaultUserAgents(),
		RateLimit:  5,
		RateBurst:  5,
	}
}

// NewHTTPClient creates a new HTTP client with the specified configuration
func NewHTTPClient(config ClientConfig) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 5
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = getDefaultUserAgents()
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8").
		SetHeader("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7").
		SetHeaders(config.Headers)

	return &HTTPClient{
		client:      client,
		userAgents:  config.UserAgents,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// Name implements Strategy
func (c *HTTPClient) Name() string { return StrategyLightweight }

// Fetch performs one paced GET and returns the body. Non-2xx responses
// are returned as *HTTPError.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (string, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.getNextUserAgent()).
		Get(targetURL)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &HTTPError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			URL:        targetURL,
			Attempt:    1,
		}
	}
	return resp.String(), nil
}

// SetRateLimit updates the rate limiting configuration
func (c *HTTPClient) SetRateLimit(requestsPerSecond float64, burst int) {
	c.rateLimiter.SetLimit(rate.Limit(requestsPerSecond))
	c.rateLimiter.SetBurst(burst)
}

// getNextUserAgent returns the next user agent in rotation
func (c *HTTPClient) getNextUserAgent() string {
	c.uaMutex.Lock()
	defer c.uaMutex.Unlock()

	userAgent := c.userAgents[c.currentUA]
	c.currentUA = (c.currentUA + 1) % len(c.userAgents)
	return userAgent
}

// getDefaultUserAgents returns desktop Chrome user agents
func getDefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	}
}
