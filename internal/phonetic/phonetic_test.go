package phonetic_test

import (
	"testing"

	"github.com/bkaraca/dinle/internal/phonetic"
)

var appNames = []string{"notepad", "calc", "chrome", "firefox", "spotify", "steam"}

func TestMatcher_ExactName(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	corrected, conf, matched := m.Match("spotify", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "spotify")
	}
	if corrected != "spotify" {
		t.Errorf("Match(%q): corrected=%q, want %q", "spotify", corrected, "spotify")
	}
	if conf < 0.9 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.9 for exact name", "spotify", conf)
	}
}

func TestMatcher_MisheardName(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	// "crome" and "chrome" share the Double Metaphone code KRM, and the
	// Jaro-Winkler score clears the phonetic threshold.
	corrected, conf, matched := m.Match("crome", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "crome")
	}
	if corrected != "chrome" {
		t.Errorf("Match(%q): corrected=%q, want %q", "crome", corrected, "chrome")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "crome", conf)
	}
}

func TestMatcher_SameSoundingVowelChange(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	// "steem" encodes to the same STM code as "steam".
	corrected, _, matched := m.Match("steem", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "steem")
	}
	if corrected != "steam" {
		t.Errorf("Match(%q): corrected=%q, want %q", "steem", corrected, "steam")
	}
}

func TestMatcher_SplitWordFuzzyFallback(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	// Recognizers like to split unfamiliar names into two words. No single
	// token of "not ped" shares a code with "notepad", so this exercises the
	// space-stripped fuzzy fallback.
	corrected, conf, matched := m.Match("not ped", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "not ped")
	}
	if corrected != "notepad" {
		t.Errorf("Match(%q): corrected=%q, want %q", "not ped", corrected, "notepad")
	}
	if conf < 0.85 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.85 via fuzzy fallback", "not ped", conf)
	}
}

func TestMatcher_PhraseContainsCandidate(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	// The pairwise token strategy lets a longer phrase resolve to the
	// candidate it contains.
	corrected, conf, matched := m.Match("google chrome", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "google chrome")
	}
	if corrected != "chrome" {
		t.Errorf("Match(%q): corrected=%q, want %q", "google chrome", corrected, "chrome")
	}
	if conf < 0.9 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.9", "google chrome", conf)
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	corrected, conf, matched := m.Match("asansör", appNames)
	if matched {
		t.Fatalf("Match(%q): matched=true, want false", "asansör")
	}
	if corrected != "asansör" {
		t.Errorf("Match(%q): corrected=%q, want original word back", "asansör", corrected)
	}
	if conf != 0 {
		t.Errorf("Match(%q): confidence=%f, want 0", "asansör", conf)
	}
}

func TestMatcher_CaseInsensitivity(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	corrected, _, matched := m.Match("SPOTIFY", appNames)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "SPOTIFY")
	}
	// The candidate is returned in its original casing, not the input's.
	if corrected != "spotify" {
		t.Errorf("Match(%q): corrected=%q, want %q", "SPOTIFY", corrected, "spotify")
	}
}

func TestMatcher_ThresholdFiltering(t *testing.T) {
	t.Parallel()

	// With both thresholds near 1.0 only exact strings survive.
	m := phonetic.New(
		phonetic.WithPhoneticThreshold(0.99),
		phonetic.WithFuzzyThreshold(0.99),
	)

	if _, _, matched := m.Match("crome", appNames); matched {
		t.Fatal("Match with threshold=0.99 should reject near-matches")
	}
	if _, _, matched := m.Match("chrome", appNames); !matched {
		t.Fatal("Match with threshold=0.99 should still accept exact names")
	}
}

func TestMatcher_EmptyCandidates(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	corrected, conf, matched := m.Match("spotify", nil)
	if matched {
		t.Fatal("Match with nil candidates should return matched=false")
	}
	if corrected != "spotify" {
		t.Errorf("corrected=%q, want original word", corrected)
	}
	if conf != 0 {
		t.Errorf("conf=%f, want 0", conf)
	}
}

func TestMatcher_EmptyWord(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	corrected, conf, matched := m.Match("", appNames)
	if matched {
		t.Fatal("Match with empty word should return matched=false")
	}
	if corrected != "" {
		t.Errorf("corrected=%q, want empty string", corrected)
	}
	if conf != 0 {
		t.Errorf("conf=%f, want 0", conf)
	}
}
