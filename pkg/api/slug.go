package api

import "regexp"

// Slugs are lowercase alphanumerics and hyphens, starting with an
// alphanumeric. They appear in URL paths, so the character set is strict.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidSlug reports whether s is a well-formed slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// ValidSlugs reports whether slugs is non-empty and every element is
// well-formed.
func ValidSlugs(slugs []string) bool {
	if len(slugs) == 0 {
		return false
	}
	for _, s := range slugs {
		if !ValidSlug(s) {
			return false
		}
	}
	return true
}
