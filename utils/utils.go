package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseDate parses a date string into a time.Time object in UTC.
// Feeds and APIs disagree on formats, so a list of layouts is tried in order.
func ParseDate(dateString string) (time.Time, error) {
	if dateString == "" {
		return time.Time{}, nil
	}

	layouts := []string{
		time.RFC1123,
		time.RFC1123Z,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"Jan 02, 2006",
	}

	var parsedTime time.Time
	var err error

	for _, layout := range layouts {
		parsedTime, err = time.Parse(layout, dateString)
		if err == nil {
			return parsedTime.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("error parsing date: %s", dateString)
}

// MonthOf converts an ISO "YYYY-MM-DD" date into its "YYYY-MM" month key.
func MonthOf(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("error parsing day date: %s", date)
	}
	return t.Format("2006-01"), nil
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Word boundaries keep "may" from matching inside "dismay".
var monthPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(monthNames))
	for i, name := range monthNames {
		patterns[i] = regexp.MustCompile(`\b` + name + `\s+(\d{4})`)
	}
	return patterns
}()

// ExtractMonth finds a month-name/year pair in free text (e.g. "tonnage rose
// in January 2024") and returns the "YYYY-MM" key, or "" when none is found.
func ExtractMonth(text string) string {
	lower := strings.ToLower(text)
	for i, re := range monthPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		return fmt.Sprintf("%s-%02d", m[1], i+1)
	}
	return ""
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// ParseFloat extracts a float from messy cell text ("1,234.5 pts" -> 1234.5).
// Returns ok=false when no digits survive the cleanup.
func ParseFloat(text string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(strings.ReplaceAll(text, ",", ""), "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CollapseWhitespace squeezes runs of whitespace down to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s down to max runes, appending "..." when something was lost.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
