package match

import (
	"strings"
	"unicode"
)

// Tokens that vary between platform catalogs without changing identity.
var noiseTokens = map[string]struct{}{
	"feat":       {},
	"featuring":  {},
	"ft":         {},
	"prod":       {},
	"explicit":   {},
	"clean":      {},
	"remaster":   {},
	"remastered": {},
	"version":    {},
	"edit":       {},
	"audio":      {},
	"official":   {},
}

// Normalize lowercases a title or artist, strips bracketed qualifiers and
// punctuation, and drops catalog noise tokens.
func Normalize(input string) string {
	if input == "" {
		return ""
	}

	lower := strings.ToLower(input)
	filtered := stripBracketedSegments(lower)
	tokens := strings.Fields(cleanSeparators(filtered))

	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := noiseTokens[token]; drop {
			continue
		}
		cleaned = append(cleaned, token)
	}

	return strings.Join(cleaned, " ")
}

// IdentityKey builds the "title|artist" grouping key used for
// deduplication of candidates without an ISRC.
func IdentityKey(title, artist string) string {
	return Normalize(title) + "|" + Normalize(artist)
}

// LooseTitleMatch reports whether two normalized titles refer to the same
// recording: equal, or one contains the other (featuring-artist and
// remix-suffix variants).
func LooseTitleMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// SameSong applies the aggregation merge rule on titles and artists.
func SameSong(titleA, artistA, titleB, artistB string) bool {
	return LooseTitleMatch(titleA, titleB) && LooseTitleMatch(artistA, artistB)
}

func stripBracketedSegments(input string) string {
	var out strings.Builder
	depth := 0
	for _, r := range input {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}

func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}
	return out.String()
}
