package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeColumn canonicalizes a header cell: whitespace collapsed, surrounding
// punctuation that spreadsheet exports like to add stripped.
func NormalizeColumn(input string) string {
	s := NormalizeSpaces(input)
	s = strings.Trim(s, ":*_ ")
	return s
}

// SameLabel compares two labels ignoring case and whitespace differences.
func SameLabel(a, b string) bool {
	return strings.EqualFold(NormalizeSpaces(a), NormalizeSpaces(b))
}

func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func SplitList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(input, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
