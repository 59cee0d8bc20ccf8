package prune

import (
	"strings"
	"unicode"
)

const (
	// FallbackTag replaces custom element names for serialization and baseline lookup.
	FallbackTag = "div"

	// PathPlaceholder replaces every path geometry attribute value.
	PathPlaceholder = "M0 0h24v24H0z"

	pathAttribute = "d"
)

// visualAttributes are the markup attributes that directly affect rendering.
var visualAttributes = map[string]struct{}{
	"src":                 {},
	"href":                {},
	"alt":                 {},
	"title":               {},
	"value":               {},
	"type":                {},
	"width":               {},
	"height":              {},
	"x":                   {},
	"y":                   {},
	"cx":                  {},
	"cy":                  {},
	"r":                   {},
	"d":                   {},
	"fill":                {},
	"stroke":              {},
	"stroke-width":        {},
	"viewBox":             {},
	"preserveAspectRatio": {},
}

// excludedStyles are dropped even when they differ from the baseline.
var excludedStyles = map[string]struct{}{
	"font-family": {},
	"d":           {},
}

// NormalizeTag lowercases a tag name and maps custom elements to FallbackTag.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(tag)
	if strings.Contains(tag, "-") {
		return FallbackTag
	}
	return tag
}

// IsVisualAttribute reports whether name is on the attribute whitelist.
// The comparison is case-sensitive.
func IsVisualAttribute(name string) bool {
	_, ok := visualAttributes[name]
	return ok
}

// IsExcludedStyle reports whether a property is always dropped.
func IsExcludedStyle(name string) bool {
	_, ok := excludedStyles[name]
	return ok
}

// NormalizeQuotes replaces every double quote with a single quote.
func NormalizeQuotes(v string) string {
	return strings.ReplaceAll(v, `"`, `'`)
}

// trimText trims the characters String.prototype.trim removes: unicode.IsSpace
// plus the byte order mark, minus NEL.
func trimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		if r == '\u0085' {
			return false
		}
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
