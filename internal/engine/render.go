package engine

import (
	"regexp"
)

// placeholderPattern matches {{key}} with optional surrounding whitespace.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes every {{key}} occurrence with the value from
// vars. Unresolved placeholders are left verbatim; rendering never fails.
func RenderTemplate(text string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// ExtractVariables returns the placeholder names found in the text, in
// first-occurrence order with duplicates removed. The composer uses it to
// surface placeholders that survived rendering.
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}
