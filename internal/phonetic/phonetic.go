// Package phonetic matches misheard spoken words against a fixed candidate
// list using Double Metaphone phonetic encoding combined with Jaro-Winkler
// string similarity.
//
// Speech recognition regularly mangles application names ("krome" for
// "chrome", "not ped" for "notepad"), so the launcher command runs this
// matcher over the candidate set before falling back to a language-model
// classification. The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word in the input and for each candidate. If any code from the
//     input overlaps with any code from a candidate, that candidate enters
//     the phonetic pool.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the one with the
//     highest Jaro-Winkler similarity (computed on the original strings,
//     case-insensitive) wins, provided its score exceeds the configurable
//     phonetic threshold.
//
//     When the phonetic pool is empty, a secondary pass tests pure
//     Jaro-Winkler similarity against all candidates using a higher fuzzy
//     threshold (default 0.85).
//
// Multi-word input is supported: the matcher computes phonetic codes per
// token and considers the best pairwise score across token pairs, so a
// phrase like "google chrome" still resolves to the candidate "chrome".
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched candidate to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher ranks spoken words against candidate names. All methods are safe
// for concurrent use; a Matcher is read-only after construction.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Matcher] configured with the supplied options.
// Default thresholds are 0.70 for phonetic matches and 0.85 for fuzzy
// fallback matches.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match finds the candidate most phonetically similar to word.
//
// word may be a single word or a space-separated phrase; with multiple
// tokens the matcher checks whether any token phonetically aligns with any
// candidate token, then ranks by Jaro-Winkler on the full strings.
//
// When matched is false, corrected equals word unchanged and confidence
// is 0. When matched is true, corrected is the candidate in its original
// casing.
func (m *Matcher) Match(word string, candidates []string) (corrected string, confidence float64, matched bool) {
	if len(candidates) == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	wordLower := strings.ToLower(strings.TrimSpace(word))
	wordTokens := strings.Fields(wordLower)

	inputCodes := codesForTokens(wordTokens)

	type ranked struct {
		candidate string
		score     float64
		phonetic  bool
	}

	var best ranked

	for _, cand := range candidates {
		candLower := strings.ToLower(strings.TrimSpace(cand))
		if candLower == "" {
			continue
		}
		candTokens := strings.Fields(candLower)

		candCodes := codesForTokens(candTokens)
		phoneticMatch := codesOverlap(inputCodes, candCodes)

		jwScore := bestJWScore(wordTokens, candTokens, wordLower, candLower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = ranked{candidate: cand, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = ranked{candidate: cand, score: jwScore, phonetic: false}
			}
		}
	}

	if best.candidate != "" {
		return best.candidate, best.score, true
	}
	return word, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when a word is too short or contains
// no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	// Iterate over the smaller set for efficiency.
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the candidate using three strategies:
//
//  1. Full-string comparison (e.g., "not ped" vs "notepad").
//  2. Space-stripped comparison (e.g., "notped" vs "notepad").
//  3. Best pairwise token comparison, the maximum score between any input
//     token and any candidate token (so "google chrome" scores 1.0 against
//     "chrome").
//
// longTolerance is passed as false to use standard Jaro-Winkler scoring.
func bestJWScore(inputTokens, candTokens []string, inputFull, candFull string) float64 {
	// Strategy 1: full strings.
	score := matchr.JaroWinkler(inputFull, candFull, false)

	// Strategy 2: concatenated (no spaces).
	if len(inputTokens) > 1 || len(candTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(candTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	// Strategy 3: best pairwise token score.
	for _, it := range inputTokens {
		for _, ct := range candTokens {
			if s := matchr.JaroWinkler(it, ct, false); s > score {
				score = s
			}
		}
	}

	return score
}
