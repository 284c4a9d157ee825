// internal/scraper/detail_title.go
package scraper

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// TitleSuffix is appended to names decomposed from a service identifier
const TitleSuffix = " 관련 민원"

var (
	titleKeywords = []string{"발급", "열람", "신청", "등록", "민원", "신고", "조회", "교부"}

	titleHeadings = []string{
		`h1.tit`, `h1.title`, `h1.main-title`, `h1`,
		`h2.tit`, `h2.title`, `h2.sub-tit`, `h2:first-of-type`,
		`.service-title`, `.main-title`, `.content-title`,
	}

	// Ordered: brand suffixes first, then a parenthesized subtitle.
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.*?)\s*[-|]\s*민원24`),
		regexp.MustCompile(`^(.*?)\s*\|\s*정부24`),
		regexp.MustCompile(`^(.*?)\s*[-|]\s*.*?정부`),
		regexp.MustCompile(`(.*?)\(\s*(.*?)\s*\)`),
	}

	titleTableLabels = []string{"서비스명", "민원명", "서비스 이름", "업무명"}

	serviceIDToken   = regexp.MustCompile(`[A-Z][a-z]*|[a-z]+|\d+`)
	serviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	serviceIDTerms = map[string]string{
		"Car":          "자동차",
		"Auto":         "자동차",
		"Vehicle":      "차량",
		"Reg":          "등록",
		"Registration": "등록",
		"Issue":        "발급",
		"Cert":         "증명서",
		"Certificate":  "증명서",
		"Copy":         "등본",
		"Original":     "원본",
		"Tax":          "세금",
	}

	titleClassSelector    = `[class*="title"], [class*="subject"], [id*="title"], .serviceTitle, .minwonTitle`
	titleEmphasisSelector = `strong, b, div.name`
	titleEmphasisKeywords = []string{"발급", "열람", "신청", "등록"}
)

// resolveTitle runs the title strategies in order; later strategies only
// run when every earlier one produced nothing.
func (de *DetailExtractor) resolveTitle(page *detailPage) (string, bool) {
	return FirstMatch(page, []func(*detailPage) (string, bool){
		titleFromHeadings,
		titleFromTitleTag,
		titleFromTable,
		titleFromTitleClass,
		titleFromEmphasis,
		titleFromServiceID,
		titleFromURL,
	})
}

func titleFromHeadings(page *detailPage) (string, bool) {
	for _, sel := range titleHeadings {
		text := cleanText(page.doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if containsAny(text, titleKeywords...) || utf8.RuneCountInString(text) > 5 {
			return text, true
		}
	}
	return "", false
}

func titleFromTitleTag(page *detailPage) (string, bool) {
	raw := cleanText(page.doc.Find("title").First().Text())
	if raw == "" {
		return "", false
	}
	return FirstMatch(raw, titleRules())
}

func titleRules() []func(string) (string, bool) {
	rules := make([]func(string) (string, bool), 0, len(titlePatterns))
	for _, re := range titlePatterns {
		re := re
		rules = append(rules, func(s string) (string, bool) {
			m := re.FindStringSubmatch(s)
			if m == nil {
				return "", false
			}
			title := strings.TrimSpace(m[1])
			return title, utf8.RuneCountInString(title) > 3
		})
	}
	return rules
}

func titleFromTable(page *detailPage) (string, bool) {
	var title string
	page.doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if !containsAny(cleanText(th.Text()), titleTableLabels...) {
			return true
		}
		value := th.NextAllFiltered("td").First()
		if value.Length() == 0 {
			value = th.Parent().Find("td").First()
		}
		title = cleanText(value.Text())
		return title == ""
	})
	return title, title != ""
}

func titleFromTitleClass(page *detailPage) (string, bool) {
	var title string
	page.doc.Find(titleClassSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := cleanText(s.Text()); utf8.RuneCountInString(text) > 5 {
			title = text
			return false
		}
		return true
	})
	return title, title != ""
}

func titleFromEmphasis(page *detailPage) (string, bool) {
	var title string
	page.doc.Find(titleEmphasisSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := cleanText(s.Text()); containsAny(text, titleEmphasisKeywords...) {
			title = text
			return false
		}
		return true
	})
	return title, title != ""
}

// titleFromServiceID decomposes a camel-case or alphanumeric identifier
// into parts and translates known tokens.
func titleFromServiceID(page *detailPage) (string, bool) {
	id := page.serviceID
	if id == "" || !serviceIDPattern.MatchString(id) {
		return "", false
	}
	parts := serviceIDToken.FindAllString(id, -1)
	if len(parts) < 2 {
		return "", false
	}
	var names []string
	for _, part := range parts {
		if term, ok := serviceIDTerms[part]; ok {
			names = append(names, term)
		} else if len(part) > 1 {
			names = append(names, part)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	return strings.Join(names, " ") + TitleSuffix, true
}

func titleFromURL(page *detailPage) (string, bool) {
	segment := lastSegment(page.url)
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	segment = strings.TrimSpace(segment)
	if utf8.RuneCountInString(segment) <= 5 || allDigits(segment) {
		return "", false
	}
	return "민원: " + segment, true
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
