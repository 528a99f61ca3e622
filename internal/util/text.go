package util

import (
	"regexp"
	"strings"
)

var (
	rePossessive = regexp.MustCompile(`'s\b`)
	reSeparators = regexp.MustCompile(`['\s-]+`)
	reAliasDrop  = regexp.MustCompile(`[^a-z0-9 ]+`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Slugify converts a human-written item name into the catalog's url_name
// form. Possessives keep their s ("amar's hatred" -> "amars_hatred"); every
// other apostrophe, space, or hyphen becomes a single underscore. The result
// is a fixed point: Slugify(Slugify(s)) == Slugify(s).
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = rePossessive.ReplaceAllString(s, "s")
	s = reSeparators.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return s
}

// AliasKey reduces a name to the punctuation-free form alias patterns are
// compared under. Both rule patterns and raw input pass through it, so rules
// can be written with natural spelling in the data file.
func AliasKey(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.NewReplacer("’", "'", "‘", "'", "`", "'", "-", " ").Replace(s)
	s = reAliasDrop.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }
