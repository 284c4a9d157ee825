// internal/scraper/list.go
package scraper

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// PortalOrigin is the base origin relative links are resolved against
const PortalOrigin = "https://www.gov.kr"

// ItemsPerPage is the number of results the portal shows per search page
const ItemsPerPage = 10

// Defaults applied when a list item lacks a sub-field
const (
	DefaultTitle       = "제목 없음"
	DefaultDescription = "설명 없음"
	DefaultDepartment  = "부서 정보 없음"
	DefaultAuth        = "정보 없음"
	DefaultKind        = "유형 정보 없음"
	DefaultButton      = "버튼 없음"
)

var (
	onclickPatterns = []*regexp.Regexp{
		regexp.MustCompile(`goUrlNewChk\('([^']+)',\s*'([^']+)',\s*'([^']+)'`),
		regexp.MustCompile(`goServiceDetail\('([^']+)',\s*'([^']+)',\s*'([^']+)'`),
		regexp.MustCompile(`fn_goServiceDetail\('([^']+)',\s*'([^']+)',\s*'([^']+)'`),
	}
	linkIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`serviceInfo/([A-Za-z0-9_]+)`),
		regexp.MustCompile(`[?&]id=([A-Za-z0-9_]+)`),
	}
	lastPagePattern = regexp.MustCompile(`applySetPage\('(\d+\.?\d*)'\)`)
	pageIndexParam  = regexp.MustCompile(`pageIndex=\d+`)
)

// ListExtractor parses search-result pages into record summaries
type ListExtractor struct {
	Origin string

	Items       Cascade
	Title       Cascade
	Description Cascade
	Department  Cascade
	Auth        Cascade
	Kind        Cascade
	Button      Cascade
	Category    Cascade
	Duration    Cascade
	Fee         Cascade
	Status      Cascade

	logger logrus.FieldLogger
}

// NewListExtractor creates a list extractor with the gov.kr selector cascades
func NewListExtractor(logger logrus.FieldLogger) *ListExtractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ListExtractor{
		Origin: PortalOrigin,
		Items: Selectors(
			`li.result_li_box`,
			`li[class*="result"]`,
			`div.result-list li`,
			`ul.search-result-list li`,
			`ul.service_list li`,
			`li.in_bn`,
			`div.service_apply_list_wrap li`,
			`div.unifiedSch_lst li`,
		),
		Title: Selectors(
			`a.list_font17`,
			`a[class*="list_font"]`,
			`a.title`,
			`strong a`,
			`p.tit a`,
			`h1`, `h2`, `h3`,
			`div.title`, `div.subject`, `div.service-name`,
			`dt a`,
			`dl dt a`,
			`div.right_detail dt a`,
			`a[title]`,
		),
		Description: Selectors(`p.list_info_txt`, `div.desc`, `p.dec`, `div.summary`, `p.txt`),
		Department:  Selectors(`span.division_`, `span[class*="division"]`, `span.dept`, `div.department`),
		Auth:        Selectors(`span.confi_`, `span[class*="confi"]`, `span.auth`, `span.login-required`),
		Kind:        Selectors(`span.badge_gray`, `span[class*="badge"]`, `span.type`, `span.category`),
		Button:      Selectors(`a.small_btn`, `a[class*="btn"]`, `a.more`, `a.detail`),
		Category: Selectors(
			`span.kind_gray`,
			`span.category`,
			`div.sorting_area span.doth`,
			`div.kind span`,
			`span[class*="category"]`,
			`div.service-category`,
		),
		Duration: Selectors(`span.time`, `span.duration`, `p.processing-time`),
		Fee:      Selectors(`span.fee`, `span.cost`, `p.fee-info`),
		Status:   Selectors(`span.status`, `div.status`, `p.status-info`),
		logger:   logger,
	}
}

// ExtractList returns one summary per result item in document order.
// An item that fails is logged and skipped; the rest are still extracted.
func (le *ListExtractor) ExtractList(doc *goquery.Document) []*types.ServiceRecord {
	items := le.Items.Find(doc.Selection)
	if items.Length() == 0 {
		le.logger.Warn("no list items matched any selector")
		return nil
	}

	records := make([]*types.ServiceRecord, 0, items.Length())
	items.Each(func(i int, item *goquery.Selection) {
		rec, err := le.safeExtractItem(item)
		if err != nil {
			le.logger.WithError(err).WithField("item", i).Error("list item extraction failed")
			return
		}
		records = append(records, rec)
	})

	le.logger.WithField("count", len(records)).Debug("list page extracted")
	return records
}

func (le *ListExtractor) safeExtractItem(item *goquery.Selection) (rec *types.ServiceRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("panic during item extraction: %v", r)
		}
	}()
	return le.extractItem(item)
}

func (le *ListExtractor) extractItem(item *goquery.Selection) (*types.ServiceRecord, error) {
	rec := &types.ServiceRecord{ErrorStatus: types.StatusNormal}

	title, href := le.titleAndLink(item)
	link, err := le.ResolveLink(href)
	if err != nil {
		return nil, err
	}
	rec.Name = title
	rec.Link = link
	rec.SourceURL = link

	rec.Description = le.Description.FirstText(item, DefaultDescription)
	rec.Department = le.Department.FirstText(item, DefaultDepartment)
	rec.AuthRequired = le.Auth.FirstText(item, DefaultAuth)
	rec.Kind = le.Kind.FirstText(item, DefaultKind)
	rec.MinwonClass = rec.Kind

	button := le.Button.First(item)
	rec.LinkText = DefaultButton
	if button.Length() > 0 {
		if text := cleanText(button.Text()); text != "" {
			rec.LinkText = text
		}
	}

	code, category, seq := parseOnclick(le.onclickCandidates(item, button)...)
	rec.BusinessCode = code
	rec.SequenceID = seq
	rec.ServiceID = code
	if rec.ServiceID == "" {
		rec.ServiceID = linkID(link)
	}
	rec.Category = le.Category.FirstText(item, "")
	if rec.Category == "" {
		rec.Category = category
	}

	rec.Duration = le.Duration.FirstText(item, "")
	rec.Fee = le.Fee.FirstText(item, "")
	rec.ProcessStatus = le.Status.FirstText(item, "")

	return rec, nil
}

func (le *ListExtractor) titleAndLink(item *goquery.Selection) (string, string) {
	if el := le.Title.First(item); el.Length() > 0 {
		return cleanText(el.Text()), hrefOf(el, item)
	}

	var title, href string
	item.Find("strong, h3, h4, p").EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		text := cleanText(tag.Text())
		if len([]rune(text)) <= 5 {
			return true
		}
		title = text
		href = hrefOf(tag, item)
		return false
	})
	if title == "" {
		le.logger.Warn("list item has no title element")
		return DefaultTitle, ""
	}
	return title, href
}

// hrefOf returns the element's own href, else the first anchor inside it,
// else the first anchor of the enclosing item.
func hrefOf(el, item *goquery.Selection) string {
	if goquery.NodeName(el) == "a" {
		if href, ok := el.Attr("href"); ok {
			return strings.TrimSpace(href)
		}
	}
	if href, ok := el.Find("a[href]").First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	if href, ok := item.Find("a[href]").First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

func (le *ListExtractor) onclickCandidates(item, button *goquery.Selection) []string {
	var out []string
	if v, ok := button.Attr("onclick"); ok {
		out = append(out, v)
	}
	item.Find("[onclick]").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.AttrOr("onclick", ""))
	})
	return out
}

// parseOnclick applies the handler patterns in order to each candidate and
// returns business code, category code and sequence id of the first match.
func parseOnclick(candidates ...string) (string, string, string) {
	for _, handler := range candidates {
		if handler == "" {
			continue
		}
		for _, re := range onclickPatterns {
			if m := re.FindStringSubmatch(handler); len(m) == 4 {
				return m[1], m[2], m[3]
			}
		}
	}
	return "", "", ""
}

// linkID extracts a fallback service identifier from a detail link
func linkID(link string) string {
	for _, re := range linkIDPatterns {
		if m := re.FindStringSubmatch(link); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

// ResolveLink makes href absolute against the portal origin. Script and
// fragment links resolve to an empty string.
func (le *ListExtractor) ResolveLink(href string) (string, error) {
	return resolveAgainst(le.Origin, href)
}

func resolveAgainst(origin, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// LastPage determines the number of result pages. It prefers the total
// result count, then the last-page control, then the highest page link.
func LastPage(doc *goquery.Document) int {
	if total := doc.Find(".new_h20 em.font_eb193a").First(); total.Length() > 0 {
		digits := strings.ReplaceAll(cleanText(total.Text()), ",", "")
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			return int(math.Ceil(float64(n) / ItemsPerPage))
		}
	}

	if onclick, ok := doc.Find("div.pagination_box li.page_last a[onclick]").First().Attr("onclick"); ok {
		if m := lastPagePattern.FindStringSubmatch(onclick); len(m) == 2 {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil && f >= 1 {
				return int(f)
			}
		}
	}

	maxPage := 0
	doc.Find("li.pageList a").Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(cleanText(s.Text())); err == nil && n > maxPage {
			maxPage = n
		}
	})
	if maxPage > 0 {
		return maxPage
	}
	return 1
}

// PageURL sets the pageIndex query parameter of a search URL
func PageURL(baseURL string, page int) string {
	param := fmt.Sprintf("pageIndex=%d", page)
	if pageIndexParam.MatchString(baseURL) {
		return pageIndexParam.ReplaceAllString(baseURL, param)
	}
	if strings.Contains(baseURL, "?") {
		return baseURL + "&" + param
	}
	return baseURL + "?" + param
}

// WithQueryParam adds or replaces a query parameter on a URL
func WithQueryParam(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
