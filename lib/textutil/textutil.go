package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}

var placeholderNames = map[string]bool{
	"":      true,
	"n/a":   true,
	"na":    true,
	"tba":   true,
	"tbd":   true,
	"staff": true,
}

// IsPlaceholderName reports whether a scraped person name is blank or one
// of the sentinels the registration system prints instead of a real name.
func IsPlaceholderName(name string) bool {
	return placeholderNames[NormalizeName(name)]
}

// Similarity is the Jaro-Winkler similarity of two names after
// normalization, 1 means identical.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}
