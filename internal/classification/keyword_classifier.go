package classification

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/spice-split/internal/model"
)

// KeywordRule assigns a category when any of its keywords occurs in a
// message. Keywords match at the start of a word, so "veterin" finds
// "veterinário" and "ração" skips "decoração". Words must match a whole word.
type KeywordRule struct {
	Name     string
	Category model.Category
	Keywords []string
	Words    []string
}

// KeywordClassifier guesses a category from raw message text using an
// ordered rule table. Unlike the canonicalizer it looks at whole messages,
// not category names.
type KeywordClassifier struct {
	rules    []KeywordRule
	fallback model.Category
}

// NewKeywordClassifier keeps the given rule order; keywords are lowercased.
func NewKeywordClassifier(rules []KeywordRule, fallback model.Category) *KeywordClassifier {
	compiled := make([]KeywordRule, 0, len(rules))
	for _, r := range rules {
		compiled = append(compiled, KeywordRule{
			Name:     r.Name,
			Category: r.Category,
			Keywords: lowerAll(r.Keywords),
			Words:    lowerAll(r.Words),
		})
	}
	return &KeywordClassifier{rules: compiled, fallback: fallback}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Match describes which rule produced a category guess.
type Match struct {
	Rule     string
	Keyword  string
	Category model.Category
}

// Classify returns the first matching rule's category. When no rule
// matches it returns the fallback bucket and ok=false.
func (kc *KeywordClassifier) Classify(text string) (Match, bool) {
	lower := strings.ToLower(text)
	for _, r := range kc.rules {
		for _, k := range r.Keywords {
			if containsWord(lower, k, false) {
				return Match{Rule: r.Name, Keyword: k, Category: r.Category}, true
			}
		}
		for _, w := range r.Words {
			if containsWord(lower, w, true) {
				return Match{Rule: r.Name, Keyword: w, Category: r.Category}, true
			}
		}
	}
	return Match{Category: kc.fallback}, false
}

// containsWord reports whether k occurs in text starting at a word
// boundary, and when whole is set, also ending at one.
func containsWord(text, k string, whole bool) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], k)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(k)
		if !wordRuneBefore(text, start) && (!whole || !wordRuneAt(text, end)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return false
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
