// internal/scraper/cache.go
package scraper

import (
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// PageCache holds the run-scoped fetch state shared by all workers: the
// strategy that last worked for a URL, its parsed document, and the URLs
// whose resolution failed. Concurrent writers follow last-writer-wins.
type PageCache struct {
	mu         sync.RWMutex
	strategies map[string]string
	documents  map[string]*goquery.Document
	failed     map[string]struct{}
}

// NewPageCache creates an empty cache
func NewPageCache() *PageCache {
	return &PageCache{
		strategies: make(map[string]string),
		documents:  make(map[string]*goquery.Document),
		failed:     make(map[string]struct{}),
	}
}

// Document returns the cached successful document for url
func (c *PageCache) Document(url string) (*goquery.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.documents[url]
	return doc, ok
}

// Strategy returns the remembered strategy name for url
func (c *PageCache) Strategy(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.strategies[url]
	return s, ok
}

// Store records a successful resolution and clears any failure mark
func (c *PageCache) Store(url, strategy string, doc *goquery.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[url] = strategy
	c.documents[url] = doc
	delete(c.failed, url)
}

// Remember records the strategy for url without a document
func (c *PageCache) Remember(url, strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[url] = strategy
}

// ForgetStrategy evicts the strategy memo of url
func (c *PageCache) ForgetStrategy(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.strategies, url)
}

// Evict removes both the strategy memo and the document of url
func (c *PageCache) Evict(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.strategies, url)
	delete(c.documents, url)
}

// MarkFailed adds url to the failed set
func (c *PageCache) MarkFailed(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[url] = struct{}{}
}

// Failed reports whether url is in the failed set
func (c *PageCache) Failed(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.failed[url]
	return ok
}

// FailedURLs returns a copy of the failed set
func (c *PageCache) FailedURLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.failed))
	for u := range c.failed {
		out = append(out, u)
	}
	return out
}

// Len returns the number of cached documents
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}
