// internal/scraper/detail.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/analysis"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

const (
	// DetailKind is the service kind given to records created from a detail page
	DetailKind = "민원"

	// PartialPlaceholder fills required fields the page did not provide
	PartialPlaceholder = "정보 없음 (자동 생성)"

	errorExcerptRunes = 100
)

// DefaultPortalDomains are the domain suffixes handled as portal pages.
// Any other host is treated as an external site.
var DefaultPortalDomains = []string{"gov.kr", "go.kr", "or.kr"}

// DocumentResolver resolves a URL to a parsed document
type DocumentResolver interface {
	Resolve(ctx context.Context, url string, opts ResolveOptions) (*goquery.Document, error)
}

// DetailExtractor parses one detail page into the full record schema.
// It holds configuration only; every call computes a fresh record.
type DetailExtractor struct {
	PortalDomains []string
	Fields        FieldMap

	resolver DocumentResolver
	analyzer analysis.Analyzer
	logger   logrus.FieldLogger
}

// NewDetailExtractor creates a detail extractor. A nil analyzer disables
// text analysis.
func NewDetailExtractor(resolver DocumentResolver, analyzer analysis.Analyzer, logger logrus.FieldLogger) *DetailExtractor {
	if analyzer == nil {
		analyzer = analysis.Disabled{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DetailExtractor{
		PortalDomains: DefaultPortalDomains,
		Fields:        DefaultFieldMap,
		resolver:      resolver,
		analyzer:      analyzer,
		logger:        logger,
	}
}

// Extract fetches link and returns the detail record. The record always
// carries an error status; fetch failures are reported through it.
func (de *DetailExtractor) Extract(ctx context.Context, link string, opts ResolveOptions) (rec *types.ServiceRecord) {
	rec = types.NewDetailRecord(link)
	rec.Kind = DetailKind
	rec.ServiceID = lastSegment(link)
	logger := de.logger.WithField("url", link)

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("detail extraction aborted")
			rec.ErrorStatus = types.StatusOtherError
			rec.ErrorMessage = excerpt(fmt.Sprint(r))
		}
	}()

	if host, external := de.External(link); external {
		markExternal(rec, link, host)
		logger.WithField("host", host).Info("external link handled")
		return rec
	}

	doc, err := de.resolver.Resolve(ctx, link, opts)
	if err != nil {
		rec.ErrorStatus = ClassifyFetchError(err)
		rec.ErrorMessage = excerpt(err.Error())
		logger.WithError(err).Warn("detail page fetch failed")
		return rec
	}

	de.ExtractDocument(rec, doc, link)
	return rec
}

// ExtractDocument runs title, section, table, fallback and auxiliary
// extraction against an already parsed page and sets the final status.
func (de *DetailExtractor) ExtractDocument(rec *types.ServiceRecord, doc *goquery.Document, pageURL string) {
	logger := de.logger.WithField("url", pageURL)
	page := &detailPage{doc: doc, url: pageURL, serviceID: rec.ServiceID}

	var titleFound, sectionsFound bool
	de.step(logger, "title", func() {
		if title, ok := de.resolveTitle(page); ok {
			rec.Name = title
			titleFound = true
		}
	})
	de.step(logger, "apply_button", func() { de.extractApplyButton(rec, page) })
	de.step(logger, "sections", func() { sectionsFound = de.extractSections(rec, page) })
	de.step(logger, "tables", func() { de.extractTables(rec, page) })

	if !sectionsFound || !titleFound || rec.Procedure == "" || rec.ApplyMethod == "" {
		logger.WithFields(logrus.Fields{
			"sections": sectionsFound,
			"title":    titleFound,
		}).Warn("structured sections incomplete, mining page text")
		de.step(logger, "fallback", func() { de.mineText(rec, page, logger) })
	}

	de.step(logger, "auxiliary", func() { de.extractAuxiliary(rec, page) })
	finalize(rec)
}

// step runs one sub-extraction, containing any panic to that step
func (de *DetailExtractor) step(logger logrus.FieldLogger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"step": name, "panic": r}).Warn("sub-extraction failed")
		}
	}()
	fn()
}

// finalize strips separators and assigns the post-extraction status
func finalize(rec *types.ServiceRecord) {
	rec.TrimSeparators()
	missing := false
	for _, f := range []types.Field{types.FieldProcedure, types.FieldApplyMethod} {
		if !rec.Filled(f) {
			rec.Set(f, PartialPlaceholder)
			missing = true
		}
	}
	if missing {
		rec.ErrorStatus = types.StatusPartialMissing
		return
	}
	rec.ErrorStatus = types.StatusNormal
}

// External reports whether link points outside the portal domains and
// returns its host.
func (de *DetailExtractor) External(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range de.PortalDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return host, false
		}
	}
	return host, true
}

func markExternal(rec *types.ServiceRecord, link, host string) {
	rec.Misc = "외부 링크 (처리됨): " + link
	rec.ApplyMethod = fmt.Sprintf("외부 사이트(%s)에서 처리하는 민원입니다. 해당 사이트를 방문하세요.", host)
	rec.ErrorStatus = types.StatusExternalLinkHandled
}

// MergeDetail copies the non-empty detail values onto the list summary.
// The detail status and message always replace the summary's.
func MergeDetail(summary, detail *types.ServiceRecord) {
	for _, f := range types.AllFields() {
		if f == types.FieldErrorStatus || f == types.FieldErrorMessage {
			continue
		}
		if v := detail.Get(f); v != "" {
			summary.Set(f, v)
		}
	}
	summary.ErrorStatus = detail.ErrorStatus
	summary.ErrorMessage = detail.ErrorMessage
}

func lastSegment(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func excerpt(msg string) string {
	r := []rune(msg)
	if len(r) > errorExcerptRunes {
		return string(r[:errorExcerptRunes])
	}
	return msg
}

// detailPage bundles the per-call state of one extraction
type detailPage struct {
	doc       *goquery.Document
	url       string
	serviceID string
}

func (p *detailPage) resolve(href string) string {
	base := p.url
	if base == "" {
		base = PortalOrigin
	}
	link, err := resolveAgainst(base, href)
	if err != nil {
		return strings.TrimSpace(href)
	}
	return link
}

// fullText returns the page text with element boundaries kept as spaces
func (p *detailPage) fullText() string {
	return spacedText(p.doc.Find("body"))
}
