// File: confspec/casing.go

package confspec

import (
	"regexp"
	"strings"
)

var (
	spaceRe     = regexp.MustCompile(` `)
	camelHumpRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerUpper  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// changeCase converts a name to snake_case or kebab-case depending on the
// separator. Word boundaries are detected at spaces, underscores, and
// camel-case humps, so "HTTPResponseCode" becomes "http-response-code" and
// "snake_case" becomes "snake-case".
func changeCase(s, separator string) string {
	s = strings.TrimSpace(s)
	s = spaceRe.ReplaceAllString(s, "_")
	s = camelHumpRe.ReplaceAllString(s, "${1}_${2}")
	s = lowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", separator)
}
