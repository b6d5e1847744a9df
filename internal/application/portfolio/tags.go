package portfolio

import (
	"regexp"
	"strings"
)

const (
	QuarantineTag = "Quarantine"
	NoReadmeTag   = "NoMD"
)

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9\-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify builds the stable URL slug of a tag name. "#" and "+" are spelled out so
// that C, C# and C++ get distinct slugs.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("#", "-sharp", "+", "-plus").Replace(s)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTag turns a GitHub topic or language into a display name.
func NormalizeTag(s string) string {
	name := strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
	switch strings.ToLower(name) {
	case "csharp", "c sharp":
		return "C#"
	}
	return name
}

// dedupeTags normalizes names and drops empties and repeats, keeping first-seen order.
func dedupeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		nn := NormalizeTag(n)
		if nn == "" || seen[nn] {
			continue
		}
		seen[nn] = true
		out = append(out, nn)
	}
	return out
}
