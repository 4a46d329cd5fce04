package shared

import (
	"fmt"
	"regexp"
	"strings"
)

var slugDisallowed = regexp.MustCompile(`[^-a-z0-9_]+`)

// Slug lowercases s and collapses every run of characters outside
// [-a-z0-9_] into a single hyphen. Idempotent: Slug(Slug(x)) == Slug(x).
func Slug(s string) string {
	lowered := strings.ToLower(s)
	return slugDisallowed.ReplaceAllString(lowered, "-")
}

const maxJobNameLen = 64

// JobName builds the gf-<attempt>-<slug(step)>-<slug(output)> job name
// and truncates it to 64 chars, replacing the final two characters with
// ".." when truncation is needed.
func JobName(attempt int, stepName, output string) string {
	name := fmt.Sprintf("gf-%d-%s-%s", attempt, Slug(stepName), Slug(output))
	if len(name) <= maxJobNameLen {
		return name
	}
	return name[:maxJobNameLen-2] + ".."
}

// OutputSlug derives a map item's template.output value from its source
// filename, falling back to stepName-index when the filename slugifies
// to nothing usable (e.g. an empty or all-punctuation name).
func OutputSlug(stepName string, index int, filename string) string {
	s := Slug(strings.TrimSuffix(filename, ext(filename)))
	s = strings.Trim(s, "-")
	if s == "" {
		return fmt.Sprintf("%s-%d", stepName, index)
	}
	return s
}

// BasenameNoExt strips the final extension from filename, for the
// template grammar's ${2} positional (basename without extension).
func BasenameNoExt(filename string) string {
	return strings.TrimSuffix(filename, ext(filename))
}

func ext(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[i:]
	}
	return ""
}
