// internal/analysis/analyzer.go
package analysis

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultKeywordCount is the number of keywords returned by Analyze
const DefaultKeywordCount = 10

// Analyzer is an optional text-analysis capability. Callers check
// Available before relying on Analyze output; an unavailable analyzer
// returns no keywords and a zero score.
type Analyzer interface {
	Available() bool
	Analyze(text string) (keywords []string, score float64)
}

// Disabled is the analyzer used when text analysis is turned off
type Disabled struct{}

// Available always reports false
func (Disabled) Available() bool { return false }

// Analyze returns nothing
func (Disabled) Analyze(string) ([]string, float64) { return nil, 0 }

// New returns a keyword analyzer when enabled, otherwise Disabled
func New(enabled bool) Analyzer {
	if !enabled {
		return Disabled{}
	}
	return NewKeywordAnalyzer(DefaultKeywordCount)
}

// KeywordAnalyzer ranks frequent content words. Korean particles are
// stripped from token endings so that 등본을 and 등본 count together.
type KeywordAnalyzer struct {
	Limit     int
	MinRunes  int
	StopWords map[string]bool
}

var defaultStopWords = []string{
	"및", "등", "또는", "경우", "있는", "있습니다", "합니다", "하는", "위한", "대한",
	"the", "and", "for", "with",
}

var particles = []string{
	"에서는", "으로는", "에게서", "까지", "부터", "에서", "으로", "에게",
	"은", "는", "이", "가", "을", "를", "의", "에", "와", "과", "도", "로",
}

// NewKeywordAnalyzer creates an analyzer returning up to limit keywords
func NewKeywordAnalyzer(limit int) *KeywordAnalyzer {
	if limit <= 0 {
		limit = DefaultKeywordCount
	}
	stop := make(map[string]bool, len(defaultStopWords))
	for _, w := range defaultStopWords {
		stop[w] = true
	}
	return &KeywordAnalyzer{Limit: limit, MinRunes: 2, StopWords: stop}
}

// Available reports true
func (ka *KeywordAnalyzer) Available() bool { return true }

// Analyze returns the most frequent content words, ties broken by first
// occurrence, and a quality score in [0,1] measuring lexical variety.
func (ka *KeywordAnalyzer) Analyze(text string) ([]string, float64) {
	tokens := ka.tokens(text)
	if len(tokens) == 0 {
		return nil, 0
	}

	counts := make(map[string]int)
	first := make(map[string]int)
	for i, tok := range tokens {
		if _, ok := first[tok]; !ok {
			first[tok] = i
		}
		counts[tok]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return first[words[i]] < first[words[j]]
	})
	if len(words) > ka.Limit {
		words = words[:ka.Limit]
	}

	score := float64(len(counts)) / float64(len(tokens))
	return words, score
}

func (ka *KeywordAnalyzer) tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = stripParticle(f)
		if utf8.RuneCountInString(f) < ka.MinRunes || ka.StopWords[f] || isDigits(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func stripParticle(word string) string {
	for _, p := range particles {
		if strings.HasSuffix(word, p) && utf8.RuneCountInString(word)-utf8.RuneCountInString(p) >= 2 {
			return strings.TrimSuffix(word, p)
		}
	}
	return word
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
