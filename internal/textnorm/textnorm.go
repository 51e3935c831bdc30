// Package textnorm canonicalizes the free text published by calendar sources
// and supplies the string-distance and token-overlap primitives the match
// scorer is built on. All comparisons operate on normalized text.
package textnorm

import (
	"html"
	"strings"
	"unicode"
)

// Typographic variants are folded to their ASCII equivalents before any
// comparison; sources disagree constantly on dashes and curly quotes.
var asciiFold = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"‚", "'", // single low quote
	"ʼ", "'", // modifier apostrophe
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"„", `"`, // double low quote
)

// Normalize lower-cases the input, decodes HTML entities, folds dash and
// quote variants to ASCII, collapses whitespace runs to single spaces, and
// trims. The empty string normalizes to the empty string.
func Normalize(input string) string {
	decoded := html.UnescapeString(input)
	folded := asciiFold.Replace(decoded)
	lowered := strings.ToLower(strings.TrimSpace(folded))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits normalized text into tokens, stripping punctuation while
// keeping apostrophes and hyphens that are internal to a word. Tokens of
// length <= 1 are dropped.
func Tokenize(input string) []string {
	normalized := Normalize(input)
	if normalized == "" {
		return nil
	}

	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\'' && r != '-'
	})

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.Trim(part, "'-")
		if len([]rune(token)) <= 1 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TokenSet returns the distinct tokens of the input.
func TokenSet(input string) map[string]struct{} {
	tokens := Tokenize(input)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// EditDistance computes the Levenshtein distance between the normalized forms
// of a and b, with unit cost for substitution, insertion, and deletion.
func EditDistance(a, b string) int {
	left := []rune(Normalize(a))
	right := []rune(Normalize(b))
	if len(left) == 0 {
		return len(right)
	}
	if len(right) == 0 {
		return len(left)
	}

	prev := make([]int, len(right)+1)
	curr := make([]int, len(right)+1)
	for j := 0; j <= len(right); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(left); i++ {
		curr[0] = i
		for j := 1; j <= len(right); j++ {
			cost := 1
			if left[i-1] == right[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(right)]
}

// Similarity maps edit distance into [0,1]: 1 for identical normalized
// strings, 0 when either side normalizes to empty, otherwise
// 1 - distance/max(len).
func Similarity(a, b string) float64 {
	left := Normalize(a)
	right := Normalize(b)
	if left == right {
		if left == "" {
			return 0
		}
		return 1
	}
	if left == "" || right == "" {
		return 0
	}

	distance := EditDistance(left, right)
	maxLen := len([]rune(left))
	if l := len([]rune(right)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(distance)/float64(maxLen)
}

// ContainsSubstring reports whether either normalized string contains the
// other. Empty input never matches.
func ContainsSubstring(a, b string) bool {
	left := Normalize(a)
	right := Normalize(b)
	if left == "" || right == "" {
		return false
	}
	return strings.Contains(left, right) || strings.Contains(right, left)
}

// TokenOverlap divides the token-set intersection by the size of the smaller
// set, returning 0 when either set is empty. Dividing by the smaller set is
// deliberately lenient toward subset titles ("Trivia Night" inside "Trivia
// Night at Paradox" scores 1).
func TokenOverlap(a, b string) float64 {
	left := TokenSet(a)
	right := TokenSet(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	intersection := 0
	for token := range left {
		if _, ok := right[token]; ok {
			intersection++
		}
	}

	smaller := len(left)
	if len(right) < smaller {
		smaller = len(right)
	}
	return float64(intersection) / float64(smaller)
}
