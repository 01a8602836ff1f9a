package render

import (
	"strings"
	"unicode"
)

// SnakeCase converts PascalCase or camelCase to snake_case
// Examples: GreetingProvider → greeting_provider, HTTPBanner → http_banner
func SnakeCase(s string) string {
	if s == "" {
		return ""
	}

	// Handle already snake_case
	if strings.Contains(s, "_") {
		return strings.ToLower(s)
	}

	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Underscore before an uppercase rune that follows a lowercase one
			// or digit, or that starts a new word after an acronym
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Exported returns s with its first rune upper-cased
func Exported(s string) string {
	return withFirst(s, unicode.ToUpper)
}

// Unexported returns s with its first rune lower-cased
func Unexported(s string) string {
	return withFirst(s, unicode.ToLower)
}

func withFirst(s string, fn func(rune) rune) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = fn(runes[0])
	return string(runes)
}
