package tracker

import (
	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// containsFold reports whether needle occurs in haystack under full
// Unicode case folding, so "strasse" matches "Straße".
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	matcher := search.New(language.Und, search.Loose)
	start, _ := matcher.IndexString(haystack, needle)
	return start >= 0
}
