// Package resolution maps free-text metric names from lab reports onto
// canonical catalog metrics with a confidence score.
package resolution

import (
	"strings"
	"unicode"
)

// Normalize folds case and strips everything that is not a letter or digit,
// so "HDL-Cholesterol " and "hdl cholesterol" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// tokens splits a raw name into lowercase alphanumeric words.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}

// Similarity scores two strings in [0,1]. Exact normalized equality is 1.0.
// Containment of one normalized string in the other, or one being the
// acronym of the other's words, is 0.95: abbreviations and expansions score
// just below exact. Reordered or clipped words ("Chol HDL" against
// "HDL Cholesterol") score 0.85, inside the review band. Everything else is
// Levenshtein distance normalized by the longer length. Two empty strings
// are identical; exactly one empty scores 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.95
	}
	if acronymMatch(tokens(a), nb) || acronymMatch(tokens(b), na) {
		return 0.95
	}

	dist := levenshtein(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	score := 1.0 - float64(dist)/float64(longest)

	if tokensSubsume(tokens(a), tokens(b)) && score < 0.85 {
		score = 0.85
	}
	return score
}

// acronymMatch reports whether abbrev is the initials of words ("tc" for
// ["total","cholesterol"]).
func acronymMatch(words []string, abbrev string) bool {
	if len(words) < 2 || len(abbrev) != len(words) {
		return false
	}
	for i, w := range words {
		if w == "" || rune(w[0]) != rune(abbrev[i]) {
			return false
		}
	}
	return true
}

// tokensSubsume reports whether every word of the shorter name matches or
// prefixes a word of the other, in any order. Single-letter words only
// match exactly.
func tokensSubsume(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	short, long := a, b
	if len(b) < len(a) {
		short, long = b, a
	}
	for _, s := range short {
		found := false
		for _, l := range long {
			if s == l || (len(s) >= 2 && strings.HasPrefix(l, s)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
