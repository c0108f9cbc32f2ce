package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases `name` and removes all whitespace so that
// "Further  Mathematics" and "furthermathematics" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// CollapseWhitespace trims `s` and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Slug turns a subject name into a path segment, joining words with `sep`.
func Slug(name string, sep string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), sep)
}

// Capitalize uppercases the first rune and lowercases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
