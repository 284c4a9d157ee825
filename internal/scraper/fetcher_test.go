// internal/scraper/fetcher_test.go
package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
)

const validPage = `<html><body><h2 class="sub-tit">민원 안내</h2><p>서비스 설명</p></body></html>`

var renderedPage = `<html><body><h2>민원 서비스</h2><p>` + strings.Repeat("렌더링된 본문 ", 30) + `</p></body></html>`

func newTestFetcher(light, render Strategy) *Fetcher {
	return NewFetcher(light, render, FetcherConfig{}, quietLogger()).WithRetryService(noWait())
}

func TestFetcher_LightweightAndCache(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) { return validPage, nil }}
	f := newTestFetcher(light, nil)
	ctx := context.Background()

	doc, err := f.Resolve(ctx, "https://www.gov.kr/a", ResolveOptions{})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "민원 안내")

	_, err = f.Resolve(ctx, "https://www.gov.kr/a", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), light.calls.Load())

	name, ok := f.Cache().Strategy("https://www.gov.kr/a")
	assert.True(t, ok)
	assert.Equal(t, StrategyLightweight, name)
}

func TestFetcher_EscalatesInvalidContent(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) {
		return `<html><body><p>loading</p></body></html>`, nil
	}}
	render := &fakeStrategy{name: StrategyRender, fetch: func(string) (string, error) { return renderedPage, nil }}
	f := newTestFetcher(light, render)

	doc, err := f.Resolve(context.Background(), "https://www.gov.kr/b", ResolveOptions{})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "렌더링된 본문")
	assert.Equal(t, int64(1), light.calls.Load())
	assert.Equal(t, int64(1), render.calls.Load())

	name, _ := f.Cache().Strategy("https://www.gov.kr/b")
	assert.Equal(t, StrategyRender, name)
}

func TestFetcher_RetriesThenSucceeds(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight}
	light.fetch = func(string) (string, error) {
		if light.calls.Load() < 3 {
			return "", errors.New("connection refused")
		}
		return validPage, nil
	}
	f := newTestFetcher(light, nil)

	_, err := f.Resolve(context.Background(), "https://www.gov.kr/c", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), light.calls.Load())
}

func TestFetcher_Exhausted(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(url string) (string, error) {
		return "", &HTTPError{StatusCode: 503, Status: "503 Service Unavailable", URL: url, Attempt: 1}
	}}
	f := newTestFetcher(light, nil)
	url := "https://www.gov.kr/d"

	_, err := f.Resolve(context.Background(), url, ResolveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchExhausted)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)
	assert.True(t, IsRetryableError(err))

	assert.Equal(t, int64(DefaultFetchAttempts), light.calls.Load())
	assert.True(t, f.Cache().Failed(url))
}

func TestFetcher_FinalRenderAttempt(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) {
		return "", errors.New("timeout")
	}}
	render := &fakeStrategy{name: StrategyRender, fetch: func(string) (string, error) { return renderedPage, nil }}
	f := newTestFetcher(light, render)

	_, err := f.Resolve(context.Background(), "https://www.gov.kr/e", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultFetchAttempts), light.calls.Load())
	assert.Equal(t, int64(1), render.calls.Load())
}

func TestFetcher_ForceRender(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) { return validPage, nil }}

	f := newTestFetcher(light, nil)
	_, err := f.Resolve(context.Background(), "https://www.gov.kr/f", ResolveOptions{ForceRender: true})
	assert.ErrorIs(t, err, ErrRenderUnavailable)
	assert.True(t, f.Cache().Failed("https://www.gov.kr/f"))
	assert.Zero(t, light.calls.Load())

	render := &fakeStrategy{name: StrategyRender, fetch: func(string) (string, error) { return `<html><body>민원</body></html>`, nil }}
	f = newTestFetcher(light, render)
	_, err = f.Resolve(context.Background(), "https://www.gov.kr/g", ResolveOptions{ForceRender: true})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestFetcher_ThinRendersDoNotBlockOtherPages(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) {
		return `<html><body><p>loading</p></body></html>`, nil
	}}
	render := &fakeStrategy{name: StrategyRender, fetch: func(url string) (string, error) {
		if strings.HasSuffix(url, "/good") {
			return renderedPage, nil
		}
		return `<html><body>민원</body></html>`, nil
	}}
	f := newTestFetcher(light, render)
	ctx := context.Background()

	for _, url := range []string{"https://www.gov.kr/thin1", "https://www.gov.kr/thin2", "https://www.gov.kr/thin3"} {
		_, err := f.Resolve(ctx, url, ResolveOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
	thinRenders := render.calls.Load()

	doc, err := f.Resolve(ctx, "https://www.gov.kr/good", ResolveOptions{})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "렌더링된 본문")
	assert.Greater(t, render.calls.Load(), thinRenders)

	doc, err = f.Resolve(ctx, "https://www.gov.kr/good2/good", ResolveOptions{ForceRender: true})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "렌더링된 본문")
}

func TestFetcher_RateLimitedBackoff(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight}
	light.fetch = func(url string) (string, error) {
		switch light.calls.Load() {
		case 1, 2:
			return "", &HTTPError{StatusCode: 429, Status: "429 Too Many Requests", URL: url}
		case 3:
			return "", errors.New("connection reset")
		}
		return validPage, nil
	}

	var mu sync.Mutex
	var delays []time.Duration
	retry := rerrors.NewService(rerrors.RetryConfig{MaxRetries: 3, BaseDelay: time.Second, Linear: true}).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			delays = append(delays, d)
			mu.Unlock()
			return ctx.Err()
		})
	f := NewFetcher(light, nil, FetcherConfig{Attempts: 4}, quietLogger()).WithRetryService(retry)

	_, err := f.Resolve(context.Background(), "https://www.gov.kr/busy", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), light.calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Second, 15 * time.Second, 4 * time.Second}, delays)
}

func TestFetcher_EvictForcesRefetch(t *testing.T) {
	light := &fakeStrategy{name: StrategyLightweight, fetch: func(string) (string, error) { return validPage, nil }}
	f := newTestFetcher(light, nil)
	ctx := context.Background()

	_, err := f.Resolve(ctx, "https://www.gov.kr/h", ResolveOptions{})
	require.NoError(t, err)
	f.Evict("https://www.gov.kr/h")
	_, err = f.Resolve(ctx, "https://www.gov.kr/h", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), light.calls.Load())
}

func TestNeedsRender(t *testing.T) {
	small := `<html><body onload="init()"><table></table><script>window.onload = f</script></body></html>`
	assert.True(t, NeedsRender(small))
	assert.False(t, NeedsRender(`<html><body><table></table></body></html>`))
	assert.False(t, NeedsRender(small+strings.Repeat(" ", 2000)))
}

func TestPageCache(t *testing.T) {
	c := NewPageCache()
	doc := mustDoc(t, validPage)

	c.MarkFailed("u")
	c.Store("u", StrategyLightweight, doc)
	assert.False(t, c.Failed("u"))

	got, ok := c.Document("u")
	assert.True(t, ok)
	assert.Same(t, doc, got)
	assert.Equal(t, 1, c.Len())

	c.ForgetStrategy("u")
	_, ok = c.Strategy("u")
	assert.False(t, ok)

	c.Evict("u")
	_, ok = c.Document("u")
	assert.False(t, ok)

	c.MarkFailed("v")
	assert.Equal(t, []string{"v"}, c.FailedURLs())
}
