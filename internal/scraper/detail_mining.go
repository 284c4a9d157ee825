// internal/scraper/detail_mining.go
package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// AuthRequiredValue marks records whose apply button requires login
const AuthRequiredValue = "인증필요"

const (
	procedureSeparator = " → "
	documentsSeparator = " / "
	linkListSeparator  = " | "
	stateSeparator     = " / "

	procedureMinRunes = 15
	documentsMinRunes = 10
	procedureLimit    = 3
	documentsLimit    = 2
	apiInfoRunes      = 200
	stateMaxRunes     = 20
)

var (
	applyButton = Selectors(
		`span.ibtn.large.navy a`,
		`a.button`,
		`a.btn_navy`,
		`a.btn-apply`,
		`a[class*="btn"][class*="large"]`,
	)
	loginIndicators = []string{"로그인", "인증", "login", "authentication"}

	procedureKeywords = []string{"신청", "방법", "절차", "순서", "단계", "접수"}
	documentsKeywords = []string{"서류", "증명서", "구비", "필요", "지참"}

	attachmentSelectors = []string{
		`a[href$=".pdf"]`, `a[href$=".hwp"]`, `a[href$=".doc"]`, `a[href$=".docx"]`,
		`a[href$=".xls"]`, `a[href$=".xlsx"]`, `a[href$=".zip"]`, `a[href$=".txt"]`,
		`a.file`, `a[class*="download"]`, `a[class*="attach"]`, `a[onclick*="download"]`,
	}
	formSelectors = []string{
		`a[href*="form"]`, `a[href*="template"]`, `a[onclick*="form"]`,
		`a[title*="서식"]`, `a[title*="양식"]`, `a[class*="form"]`,
		`a:contains("서식")`, `a:contains("양식")`, `a:contains("다운로드")`,
	}
	imageSelectors = []string{
		`img[src*="process"]`, `img[src*="step"]`, `img[src*="procedure"]`,
		`img[alt*="프로세스"]`, `img[alt*="절차"]`, `img[alt*="과정"]`,
		`div.process img`, `div.step img`, `div.procedure img`,
	}
	stateSelectors = []string{
		`span.status`, `div.status`, `p.status`,
		`span[class*="state"]`, `div[class*="state"]`,
		`div.sorting_area span`,
	}
	stateKeywords = []string{"신청가능", "종료", "접수중", "서비스", "인증", "민원"}

	// Ordered; the first pattern found anywhere in the page text wins.
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s*(?:일|시간|분)`),
		regexp.MustCompile(`처리기간[은:]?\s*\d+`),
		regexp.MustCompile(`\d+\s*(?:영업일|근무일|업무일)`),
		regexp.MustCompile(`\d+~\d+\s*(?:일|시간|분)`),
		regexp.MustCompile(`최대\s*\d+\s*(?:일|시간|분)`),
		regexp.MustCompile(`\d+일\s*이내`),
	}
)

const (
	defaultAttachmentName = "첨부파일"
	defaultFormName       = "서식 다운로드"
)

func (de *DetailExtractor) extractApplyButton(rec *types.ServiceRecord, page *detailPage) {
	button := applyButton.First(page.doc.Selection)
	if button.Length() == 0 {
		return
	}
	rec.LinkText = cleanText(button.Text())

	text := strings.ToLower(button.Text())
	onclick := strings.ToLower(button.AttrOr("onclick", ""))
	for _, indicator := range loginIndicators {
		if strings.Contains(text, indicator) || strings.Contains(onclick, indicator) {
			rec.AuthRequired = AuthRequiredValue
			return
		}
	}
}

// mineText fills procedure, documents and application method from
// unstructured page text.
func (de *DetailExtractor) mineText(rec *types.ServiceRecord, page *detailPage, logger logrus.FieldLogger) {
	full := page.fullText()

	if de.analyzer.Available() {
		keywords, score := de.analyzer.Analyze(full)
		logger.WithFields(logrus.Fields{
			"keywords": strings.Join(keywords, ", "),
			"score":    score,
		}).Info("page keywords")
	}

	if rec.Procedure == "" {
		rec.Procedure = procedureFromSections(page)
	}
	if rec.Procedure == "" {
		if texts := keywordBlocks(page, full, procedureKeywords, procedureMinRunes, procedureLimit); len(texts) > 0 {
			rec.Procedure = strings.Join(texts, procedureSeparator)
			logger.WithField("procedure", excerpt(rec.Procedure)).Debug("procedure mined from keywords")
		}
	}
	if rec.Documents == "" {
		if texts := keywordBlocks(page, full, documentsKeywords, documentsMinRunes, documentsLimit); len(texts) > 0 {
			rec.Documents = strings.Join(texts, documentsSeparator)
		}
	}
	if rec.ApplyMethod == "" {
		rec.ApplyMethod = textAfterLabel(page, "신청방법")
	}
}

// procedureFromSections joins the steps of the first process section
func procedureFromSections(page *detailPage) string {
	var procedure string
	page.doc.Find("div, section").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return classContains(s, "process", "step", "procedure")
	}).EachWithBreak(func(_ int, section *goquery.Selection) bool {
		var steps []string
		section.Find("li, div").Each(func(_ int, step *goquery.Selection) {
			if classContains(step, "step", "process") {
				if text := cleanText(step.Text()); text != "" {
					steps = append(steps, text)
				}
			}
		})
		if len(steps) == 0 {
			return true
		}
		procedure = strings.Join(steps, procedureSeparator)
		return false
	})
	return procedure
}

// keywordBlocks collects innermost paragraph, div and list texts that
// contain one of the keywords, keyword by keyword, up to limit texts.
func keywordBlocks(page *detailPage, full string, keywords []string, minRunes, limit int) []string {
	blocks := page.doc.Find("p, div, li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("p, div, li").Length() == 0
	})

	var out []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if !strings.Contains(full, kw) {
			continue
		}
		blocks.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := cleanText(s.Text())
			if strings.Contains(text, kw) && utf8.RuneCountInString(text) > minRunes && !seen[text] {
				seen[text] = true
				out = append(out, text)
			}
			return len(out) < limit
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// textAfterLabel returns the text of the element following the innermost
// element whose text contains label.
func textAfterLabel(page *detailPage, label string) string {
	var value string
	page.doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 || !strings.Contains(s.Text(), label) {
			return true
		}
		value = cleanText(nextElement(s).Text())
		return false
	})
	return value
}

func (de *DetailExtractor) extractAuxiliary(rec *types.ServiceRecord, page *detailPage) {
	if links := collectLinks(page, attachmentSelectors, defaultAttachmentName); len(links) > 0 {
		rec.Attachments = strings.Join(links, linkListSeparator)
	}
	if links := collectLinks(page, formSelectors, defaultFormName); len(links) > 0 {
		rec.Forms = strings.Join(links, linkListSeparator)
	}
	if images := collectImages(page); len(images) > 0 {
		rec.ProcessImages = strings.Join(images, linkListSeparator)
	}
	if utf8.RuneCountInString(rec.Duration) < 3 {
		if d := durationFromText(page.fullText()); d != "" {
			rec.Duration = d
		}
	}
	if info := apiInfo(page); len(info) > 0 {
		rec.APIInfo = strings.Join(info, linkListSeparator)
	}
	if state := serviceState(page); state != "" {
		rec.ServiceState = state
	}
}

// collectLinks returns "name: url" entries for anchors matched by the
// selectors, skipping script links and repeated targets.
func collectLinks(page *detailPage, selectors []string, defaultName string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, sel := range selectors {
		page.doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			if href == "" || strings.Contains(strings.ToLower(href), "javascript:void") {
				return
			}
			link := page.resolve(href)
			if link == "" || seen[link] {
				return
			}
			seen[link] = true
			name := cleanText(a.Text())
			if name == "" {
				name = defaultName
			}
			out = append(out, name+": "+link)
		})
	}
	return out
}

func collectImages(page *detailPage) []string {
	var out []string
	seen := make(map[string]bool)
	for _, sel := range imageSelectors {
		page.doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" {
				return
			}
			if link := page.resolve(src); link != "" && !seen[link] {
				seen[link] = true
				out = append(out, link)
			}
		})
	}
	return out
}

func durationFromText(text string) string {
	for _, re := range durationPatterns {
		if m := re.FindString(text); m != "" {
			return cleanText(m)
		}
	}
	return ""
}

func apiInfo(page *detailPage) []string {
	var out []string
	page.doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		if !classContains(s, "api", "data") {
			return
		}
		text := spacedText(s)
		if text == "" {
			return
		}
		if r := []rune(text); len(r) > apiInfoRunes {
			text = string(r[:apiInfoRunes])
		}
		out = append(out, text)
	})
	return out
}

func serviceState(page *detailPage) string {
	for _, sel := range stateSelectors {
		var texts []string
		page.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if text != "" && utf8.RuneCountInString(text) < stateMaxRunes && containsAny(text, stateKeywords...) {
				texts = append(texts, text)
			}
		})
		if len(texts) > 0 {
			return strings.Join(texts, stateSeparator)
		}
	}
	return ""
}
