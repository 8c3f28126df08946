package matcher

import (
	"strings"
	"unicode"
)

var subtitleSeparators = []string{":", " - ", " – ", " — "}

// SanitizeQuery strips angle brackets and collapses whitespace.
func SanitizeQuery(q string) string {
	q = strings.NewReplacer("<", "", ">", "").Replace(q)
	return strings.Join(strings.Fields(q), " ")
}

// StripPunctuation replaces every rune that is not a letter, digit or space
// with a space and collapses the result.
func StripPunctuation(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// MainTitle returns the part before the first subtitle separator, or "" when
// there is none.
func MainTitle(s string) string {
	cut := -1
	for _, sep := range subtitleSeparators {
		if i := strings.Index(s, sep); i > 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return ""
	}
	return strings.TrimSpace(s[:cut])
}

// NameVariants derives alternate search strings for catalogs that index
// subtitles differently: the full title, the title without punctuation, the
// main title and its first maxWords words. Duplicates are dropped
// case-insensitively, order is preserved.
func NameVariants(title string, maxWords int) []string {
	title = strings.Join(strings.Fields(title), " ")
	candidates := []string{title, StripPunctuation(title)}

	if main := MainTitle(title); main != "" {
		candidates = append(candidates, main, StripPunctuation(main))
	}

	if maxWords > 0 {
		words := strings.Fields(StripPunctuation(title))
		if len(words) > maxWords {
			candidates = append(candidates, strings.Join(words[:maxWords], " "))
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := Normalize(c)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, c)
	}
	return variants
}
