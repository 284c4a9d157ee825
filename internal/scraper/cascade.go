// internal/scraper/cascade.go
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule is one candidate lookup in a selector cascade. Match, when set,
// filters the elements selected by Selector.
type Rule struct {
	Selector string
	Match    func(*goquery.Selection) bool
}

// Cascade is an ordered list of rules, most specific first.
// Reordering rules changes extraction precedence.
type Cascade []Rule

// Selectors builds a cascade from plain CSS selectors
func Selectors(selectors ...string) Cascade {
	c := make(Cascade, 0, len(selectors))
	for _, s := range selectors {
		c = append(c, Rule{Selector: s})
	}
	return c
}

// Find evaluates the rules in order and returns the first non-empty match
// set in document order, or an empty selection.
func (c Cascade) Find(root *goquery.Selection) *goquery.Selection {
	for _, rule := range c {
		found := root.Find(rule.Selector)
		if rule.Match != nil {
			found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return rule.Match(s)
			})
		}
		if found.Length() > 0 {
			return found
		}
	}
	return root.Find("__no_match__")
}

// First returns the first element of the first matching rule
func (c Cascade) First(root *goquery.Selection) *goquery.Selection {
	return c.Find(root).First()
}

// FirstText returns the trimmed text of the first element matched by the
// cascade whose text is non-empty, or def when nothing matches.
func (c Cascade) FirstText(root *goquery.Selection, def string) string {
	for _, rule := range c {
		found := root.Find(rule.Selector)
		if rule.Match != nil {
			found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return rule.Match(s)
			})
		}
		for i := range found.Nodes {
			if text := cleanText(found.Eq(i).Text()); text != "" {
				return text
			}
		}
	}
	return def
}

// FirstMatch applies an ordered rule table to input and returns the first
// produced value. Each rule reports whether it produced a result.
func FirstMatch[In, Out any](input In, rules []func(In) (Out, bool)) (Out, bool) {
	for _, rule := range rules {
		if out, ok := rule(input); ok {
			return out, true
		}
	}
	var zero Out
	return zero, false
}

// cleanText collapses whitespace runs and trims
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// hasClassPrefix reports whether any class on the element starts with prefix
func hasClassPrefix(s *goquery.Selection, prefix string) bool {
	for _, c := range strings.Fields(s.AttrOr("class", "")) {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// classContains reports whether the class attribute contains any of the fragments
func classContains(s *goquery.Selection, fragments ...string) bool {
	class := strings.ToLower(s.AttrOr("class", ""))
	for _, f := range fragments {
		if strings.Contains(class, f) {
			return true
		}
	}
	return false
}
