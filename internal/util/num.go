package util

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ParseNumber extracts the first numeric token from a field like
// "ABV 6,7%" and parses it, accepting both decimal markers. Returns 0
// when no number is present.
func ParseNumber(field string) float64 {
	token := numberPattern.FindString(field)
	if token == "" {
		return 0
	}
	token = strings.ReplaceAll(token, ",", ".")
	parsed, err := strconv.ParseFloat(strings.TrimSuffix(token, "%"), 64)
	if err != nil {
		return 0
	}
	return parsed
}

// ContainsFold reports whether s contains substr ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
