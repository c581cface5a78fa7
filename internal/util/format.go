package util

import (
	"math"
	"strconv"
	"strings"
)

// FormatPrice formats a price with two decimals, e.g. "39.99" or "20.00".
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "—"
	}
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// NormalizeKey trims surrounding whitespace from a user-typed ISBN.
func NormalizeKey(isbn string) string {
	return strings.TrimSpace(isbn)
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
