package metadata

import (
	"regexp"
	"strings"
)

// MaxDescriptionLength is measured in runes.
const MaxDescriptionLength = 500

const ellipsis = "..."

var (
	tagPattern        = regexp.MustCompile(`<[^<]+?>`)
	blankLinesPattern = regexp.MustCompile(`(\r?\n[ \t]*){2,}`)
)

// StripTags removes anything that looks like a markup tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// CollapseBlankLines turns any run of blank lines into a single blank line.
func CollapseBlankLines(s string) string {
	return blankLinesPattern.ReplaceAllString(s, "\n\n")
}

// Truncate cuts s to max runes, appending an ellipsis when it was longer.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}

// CleanDescription is the shaping applied by providers to search results.
func CleanDescription(s string) string {
	if s == "" {
		return ""
	}
	return Truncate(strings.TrimSpace(StripTags(s)), MaxDescriptionLength)
}

// SanitizeDescription is the stricter shaping applied before persisting an
// imported description.
func SanitizeDescription(s string) string {
	if s == "" {
		return ""
	}
	clean := strings.TrimSpace(CollapseBlankLines(StripTags(s)))
	return Truncate(clean, MaxDescriptionLength)
}
