// internal/scraper/helpers_test.go
package scraper

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func noWait() *rerrors.Service {
	return rerrors.NewService(rerrors.DefaultRetryConfig()).
		WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// fakeStrategy serves canned markup and counts calls
type fakeStrategy struct {
	name  string
	fetch func(url string) (string, error)
	calls atomic.Int64
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Fetch(_ context.Context, url string) (string, error) {
	s.calls.Add(1)
	return s.fetch(url)
}

// fakeResolver maps URLs to markup or errors
type fakeResolver struct {
	pages map[string]string
	errs  map[string]error
}

func (r *fakeResolver) Resolve(_ context.Context, url string, _ ResolveOptions) (*goquery.Document, error) {
	if err, ok := r.errs[url]; ok {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(r.pages[url]))
}

// fakeExtractor returns records from a function and counts calls
type fakeExtractor struct {
	mu      sync.Mutex
	calls   []ResolveOptions
	extract func(call int, link string) *types.ServiceRecord
}

func (e *fakeExtractor) Extract(_ context.Context, link string, opts ResolveOptions) *types.ServiceRecord {
	e.mu.Lock()
	e.calls = append(e.calls, opts)
	n := len(e.calls)
	e.mu.Unlock()
	return e.extract(n, link)
}

// countingEvicter records evictions
type countingEvicter struct {
	evicted atomic.Int64
}

func (c *countingEvicter) Evict(string) { c.evicted.Add(1) }

// memoryPersister keeps persisted record sets by name
type memoryPersister struct {
	mu    sync.Mutex
	files map[string][]*types.ServiceRecord
}

func newMemoryPersister() *memoryPersister {
	return &memoryPersister{files: make(map[string][]*types.ServiceRecord)}
}

func (p *memoryPersister) Persist(name string, records []*types.ServiceRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[name] = records
	return nil
}

func (p *memoryPersister) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for name := range p.files {
		out = append(out, name)
	}
	return out
}

func completeRecord(link string) *types.ServiceRecord {
	rec := types.NewDetailRecord(link)
	rec.Name = "여권 발급 신청"
	rec.Description = "해외 여행용 여권을 발급받는 민원입니다"
	rec.Procedure = "신청 → 심사 → 발급"
	rec.ApplyMethod = "방문 신청"
	rec.Documents = "신분증"
	rec.Agency = "외교부"
	return rec
}
