// internal/scraper/detail_sections.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// headingRule selects section headings by tag and an optional class test
type headingRule struct {
	Tag   string
	Match func(*goquery.Selection) bool
}

func withClass(class string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool { return s.HasClass(class) }
}

// sectionHeadings is ordered from the portal's own section markup to
// generic definition and emphasis tags.
var sectionHeadings = []headingRule{
	{"h2", func(s *goquery.Selection) bool { return hasClassPrefix(s, "h2-ico") }},
	{"h2", withClass("sub-tit")},
	{"h3", withClass("tit")},
	{"h3", func(s *goquery.Selection) bool { return classContains(s, "title") }},
	{"h2", withClass("guide_cont_title")},
	{"h3", withClass("guide_cont_title")},
	{"dt", nil},
	{"th", nil},
	{"p", withClass("as_tit")},
	{"strong", nil},
	{"div", withClass("title_box_tab")},
}

var (
	sectionSubheading = Selectors(`p.tt`, `strong`, `span.label`, `span.tit`, `dt`)
	sectionContent    = Selectors(`div.tx`, `span.text`, `dd`, `p:not(.tt)`, `div.desc`)

	phonePattern = regexp.MustCompile(`\d{2,3}-\d{3,4}-\d{4}`)
)

const (
	itemSelector        = "li"
	labeledBlocks       = "p.item, p.field, p.row, div.item, div.field, div.row"
	legalBasisSeparator = "; "
	contactNote         = " (연락처 별도 저장)"
)

// labelOverride rewrites the content of specific labels before mapping
type labelOverride struct {
	Match func(label, content string) bool
	Apply func(rec *types.ServiceRecord, page *detailPage, content string, block *goquery.Selection) string
}

var labelOverrides = []labelOverride{
	{
		Match: func(label, _ string) bool { return label == "온라인신청" },
		Apply: func(_ *types.ServiceRecord, page *detailPage, content string, block *goquery.Selection) string {
			if href, ok := block.Find("a[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
				return page.resolve(href)
			}
			return content
		},
	},
	{
		Match: func(label, _ string) bool { return label == "근거법령" },
		Apply: func(_ *types.ServiceRecord, _ *detailPage, content string, block *goquery.Selection) string {
			var laws []string
			block.Find("a").Each(func(_ int, a *goquery.Selection) {
				if text := cleanText(a.Text()); text != "" {
					laws = append(laws, text)
				}
			})
			if len(laws) == 0 {
				return content
			}
			return strings.Join(laws, legalBasisSeparator)
		},
	},
	{
		Match: func(label, content string) bool {
			return strings.Contains(label, "접수기관") && strings.Contains(content, "연락처")
		},
		Apply: func(rec *types.ServiceRecord, _ *detailPage, content string, _ *goquery.Selection) string {
			head, tail, _ := strings.Cut(content, "연락처")
			rec.Contact = cleanText(strings.TrimLeft(tail, " :"))
			return cleanText(head)
		},
	},
	{
		Match: func(label, content string) bool {
			if !strings.Contains(label, "담당") {
				return false
			}
			head, tail, found := strings.Cut(content, ":")
			return found && (phonePattern.MatchString(tail) || strings.Contains(head, "연락처"))
		},
		Apply: func(rec *types.ServiceRecord, _ *detailPage, content string, _ *goquery.Selection) string {
			head, tail, _ := strings.Cut(content, ":")
			rec.Contact = cleanText(tail)
			return cleanText(head) + contactNote
		},
	},
}

// extractSections walks every heading rule and reports whether any
// heading was found.
func (de *DetailExtractor) extractSections(rec *types.ServiceRecord, page *detailPage) bool {
	found := false
	for _, rule := range sectionHeadings {
		headings := page.doc.Find(rule.Tag)
		if rule.Match != nil {
			headings = headings.FilterFunction(func(_ int, s *goquery.Selection) bool { return rule.Match(s) })
		}
		if headings.Length() == 0 {
			continue
		}
		found = true
		headings.Each(func(_ int, h *goquery.Selection) {
			de.extractSection(rec, page, sectionContainer(h))
		})
	}
	return found
}

func (de *DetailExtractor) extractSection(rec *types.ServiceRecord, page *detailPage, container *goquery.Selection) {
	items := within(container, itemSelector)
	if items.Length() == 0 {
		items = within(container, labeledBlocks)
	}
	items.Each(func(_ int, item *goquery.Selection) {
		sub := sectionSubheading.First(item)
		if sub.Length() == 0 {
			return
		}
		label := cleanText(sub.Text())

		block := sectionContent.First(item)
		if block.Length() == 0 {
			block = nextElement(sub)
		}
		if block.Length() == 0 {
			return
		}
		content := spacedText(block)

		for _, o := range labelOverrides {
			if o.Match(label, content) {
				content = o.Apply(rec, page, content, block)
				break
			}
		}
		de.Fields.Assign(rec, label, content)
	})
}

// sectionContainer returns the content box following a heading, or the
// siblings up to the next heading of the same tag and class.
func sectionContainer(h *goquery.Selection) *goquery.Selection {
	siblings := h.NextAll()
	box := siblings.FilterFunction(func(_ int, s *goquery.Selection) bool {
		name := goquery.NodeName(s)
		return (name == "div" || name == "ul") && (s.HasClass("cont-box") || s.HasClass("content"))
	}).First()
	if box.Length() > 0 {
		return box
	}

	tag := goquery.NodeName(h)
	class := h.AttrOr("class", "")
	stop := siblings.Length()
	siblings.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == tag && s.AttrOr("class", "") == class {
			stop = i
			return false
		}
		return true
	})
	return siblings.Slice(0, stop)
}

// within returns the elements of sel and their descendants matching
// selector, in document order.
func within(sel *goquery.Selection, selector string) *goquery.Selection {
	out := sel.Slice(0, 0)
	sel.Each(func(_ int, s *goquery.Selection) {
		if s.Is(selector) {
			out = out.AddSelection(s)
		}
		out = out.AddSelection(s.Find(selector))
	})
	return out
}

// nextElement returns the first element after the subtree of s,
// climbing to ancestors when s is the last child.
func nextElement(s *goquery.Selection) *goquery.Selection {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if next := cur.Next(); next.Length() > 0 {
			return next
		}
	}
	return s.Slice(0, 0)
}

// extractTables maps header/value rows of every table
func (de *DetailExtractor) extractTables(rec *types.ServiceRecord, page *detailPage) {
	page.doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		header := row.Find("th").First()
		valueIndex := 0
		if header.Length() == 0 {
			header = row.Find("td").FilterFunction(func(_ int, td *goquery.Selection) bool {
				return classContains(td, "header", "title", "label")
			}).First()
			valueIndex = 1
		}
		if header.Length() == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() <= valueIndex {
			return
		}
		label := cleanText(header.Text())
		de.Fields.Assign(rec, label, spacedText(cells.Eq(valueIndex)))
	})
}

// spacedText returns the element text with a space between text nodes of
// different elements, skipping scripts and styles.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				parts = append(parts, c.Text())
			case "#comment", "script", "style", "noscript":
			default:
				walk(c)
			}
		})
	}
	sel.Each(func(_ int, s *goquery.Selection) { walk(s) })
	return cleanText(strings.Join(parts, " "))
}
