// internal/utils/utils.go
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// TimestampLayout is the suffix layout of timestamped output files
const TimestampLayout = "20060102_150405"

var invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

// CleanFileName replaces characters that are invalid in file names
func CleanFileName(name string) string {
	cleaned := invalidFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	cleaned = strings.Trim(cleaned, "._")

	if utf8.RuneCountInString(cleaned) > 100 {
		cleaned = string([]rune(cleaned)[:100])
	}
	if cleaned == "" {
		cleaned = "output"
	}
	return cleaned
}

// Stamp formats t for file names
func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// TruncateString shortens s to at most maxRunes runes, marking the cut
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
