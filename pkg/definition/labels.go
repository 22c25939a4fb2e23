package definition

import (
	"regexp"
	"strings"
	"unicode"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// Label turns a field id into a display label: "confirm_password" and
// "confirmPassword" both become "Confirm Password".
func Label(id string) string {
	var segments []string
	for _, word := range splitWordsPattern.Split(id, -1) {
		if word == "" {
			continue
		}
		segments = append(segments, titleCase(splitCamel(word)))
	}
	return strings.Join(segments, " ")
}

func splitCamel(input string) string {
	runes := []rune(input)
	var out strings.Builder
	for i, r := range runes {
		if i > 0 && boundary(runes[i-1], r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func boundary(prev, r rune) bool {
	return (unicode.IsLower(prev) && unicode.IsUpper(r)) ||
		(unicode.IsLetter(prev) && unicode.IsDigit(r)) ||
		(unicode.IsDigit(prev) && unicode.IsLetter(r))
}

func titleCase(words string) string {
	parts := strings.Fields(words)
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
