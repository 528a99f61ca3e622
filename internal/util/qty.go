package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`(\d{1,3}(?:[\s.,]\d{3})+|\d+)`)
)

// ParseCellQty extracts an integer quantity from a table cell, tolerating
// thousand separators ("1 000", "1,000", "1.000") and unit suffixes. Returns
// nil when the cell holds no usable positive integer.
func ParseCellQty(input string) *int {
	line := strings.ReplaceAll(input, "\u00a0", " ")
	m := numberPattern.FindString(line)
	if m == "" {
		return nil
	}
	parsed, err := strconv.Atoi(normalizeNumericToken(m))
	if err != nil || parsed < 1 {
		return nil
	}
	return IntPtr(parsed)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
	if regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	return compact
}
