package matcher

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, strips accents and quotes and collapses
// whitespace, so "Reunião  de Equipe" and "reuniao de equipe" compare equal.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Transformers carry state; build a fresh chain per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = cases.Fold().String(folded)
	folded = strings.NewReplacer(`"`, "", "“", "", "”", "").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Slugify normalizes s and joins its words with hyphens, the form record
// slugs are stored in.
func Slugify(s string) string {
	normalized := Normalize(s)
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}

// Tokenize splits normalized text on hyphens, underscores and whitespace.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
}

// stem returns the file name without directory and extension.
func stem(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func longTokens(tokens []string, minLen int) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) >= minLen {
			out = append(out, tok)
		}
	}
	return out
}
