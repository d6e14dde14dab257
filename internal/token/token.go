// Package token derives the identity string of a registered API from its name and version.
package token

import (
	"regexp"
	"strings"
)

// Separator joins the normalized name and the version inside a token.
const Separator = ":"

// versionPattern accepts one to three dot-separated groups of digits.
var versionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)

// Normalize trims surrounding whitespace and lowercases an API name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidVersion reports whether version is made of 1 to 3 dot-separated digit groups,
// e.g. "1", "1.2" or "1.2.3". Surrounding whitespace is ignored.
func ValidVersion(version string) bool {
	return versionPattern.MatchString(strings.TrimSpace(version))
}

// New returns the token for name and version.
func New(name, version string) string {
	return Normalize(name) + Separator + strings.TrimSpace(version)
}
