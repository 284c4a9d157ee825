// internal/pipeline/normalize.go
package pipeline

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxNormalizePasses bounds the fixed-point loop in Normalize
const maxNormalizePasses = 8

// Free is the canonical fee value for services without a charge
const Free = "무료"

// Immediate is the canonical duration value for same-day services
const Immediate = "즉시처리"

var (
	procedureGlyphs  = regexp.MustCompile(`[▶→⇒➡⇨▷▸▹▻►▼↓\x{FE0F}]+`)
	procedureSpacing = regexp.MustCompile(`\s*→\s*`)

	freeFee   = regexp.MustCompile(`없음|무료|면제|비용\s*없|(^|[^\d,.])0\s*원|^0$`)
	feeAmount = regexp.MustCompile(`\d+(?:,\d+)*(?:\.\d+)?`)

	immediateDuration = regexp.MustCompile(`즉시|당일|실시간|바로`)
	durationDays      = regexp.MustCompile(`(\d+)\s*(?:일|영업일|근무일)`)
	durationHours     = regexp.MustCompile(`(\d+)\s*시간`)
	durationMinutes   = regexp.MustCompile(`(\d+)\s*분`)
)

// Normalize decodes HTML entities, applies Unicode NFC, collapses
// whitespace runs into single spaces and trims the result.
// The output is a fixed point: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	current := text
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizePass(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func normalizePass(text string) string {
	for {
		unescaped := html.UnescapeString(text)
		if unescaped == text {
			break
		}
		text = unescaped
	}
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeProcedure unifies step separators into a single spaced arrow
func NormalizeProcedure(text string) string {
	text = Normalize(text)
	if text == "" {
		return ""
	}
	text = procedureGlyphs.ReplaceAllString(text, "→")
	text = procedureSpacing.ReplaceAllString(text, " → ")
	return strings.TrimSpace(text)
}

// NormalizeFee maps free-of-charge phrases to Free and reformats the first
// numeric amount as "<amount>원 (<original>)".
func NormalizeFee(text string) string {
	text = Normalize(text)
	if text == "" {
		return ""
	}
	if freeFee.MatchString(text) {
		return Free
	}
	amount := feeAmount.FindString(text)
	if amount == "" {
		return text
	}
	prefix := amount + "원 ("
	if strings.HasPrefix(text, prefix) && strings.HasSuffix(text, ")") {
		return text
	}
	return prefix + text + ")"
}

// DurationParts holds the numeric components found in a processing duration
type DurationParts struct {
	Days    *int `json:"days,omitempty"`
	Hours   *int `json:"hours,omitempty"`
	Minutes *int `json:"minutes,omitempty"`
}

// IsZero reports whether no component was extracted
func (d DurationParts) IsZero() bool {
	return d.Days == nil && d.Hours == nil && d.Minutes == nil
}

// NormalizeDuration maps immediacy phrases to Immediate; otherwise it keeps
// the text and extracts day, hour and minute counts.
func NormalizeDuration(text string) (string, DurationParts) {
	var parts DurationParts
	text = Normalize(text)
	if text == "" {
		return "", parts
	}
	if immediateDuration.MatchString(text) {
		return Immediate, parts
	}
	parts.Days = firstInt(durationDays, text)
	parts.Hours = firstInt(durationHours, text)
	parts.Minutes = firstInt(durationMinutes, text)
	return text, parts
}

func firstInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
