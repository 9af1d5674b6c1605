package fingerprint

import (
	"reflect"
	"testing"
)

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	content := "The Moon is 384,400 km away from Earth."
	first := Compute(content)
	second := Compute(content)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical keys for identical input:\n%+v\n%+v", first, second)
	}
	if first.String() != second.String() {
		t.Fatalf("expected identical serializations, got %q vs %q", first.String(), second.String())
	}
}

func TestCompute_Components(t *testing.T) {
	t.Parallel()

	key := Compute("Octopuses have three hearts and blue blood")

	if key.Normalized != "octopuses have three hearts and blue blood" {
		t.Fatalf("unexpected normalized component: %q", key.Normalized)
	}
	if key.SortedWords != "blood blue have hearts octopuses three" {
		t.Fatalf("unexpected sorted words: %q", key.SortedWords)
	}
	if key.FirstHalf != "octopuses have three" {
		t.Fatalf("unexpected first half: %q", key.FirstHalf)
	}
	if key.SecondHalf != "hearts and blue blood" {
		t.Fatalf("unexpected second half: %q", key.SecondHalf)
	}
}

func TestCompute_NumbersAndProperNouns(t *testing.T) {
	t.Parallel()

	key := Compute("The Great Wall of China was started around 220 BC and spans 21196 km")

	if !reflect.DeepEqual(key.Numbers, []string{"220", "21196"}) {
		t.Fatalf("unexpected numbers: %v", key.Numbers)
	}
	found := false
	for _, noun := range key.ProperNouns {
		if noun == "The Great Wall" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected proper-noun run %q in %v", "The Great Wall", key.ProperNouns)
	}
}

func TestCompute_TruncatesLongComponents(t *testing.T) {
	t.Parallel()

	long := "Supercalifragilistic measurements of interstellar molecular hydrogen clouds exceed all previously recorded laboratory baselines"
	key := Compute(long)
	if len(key.Normalized) > 60 {
		t.Fatalf("normalized component exceeds cap: %d chars", len(key.Normalized))
	}
	if len(key.SortedWords) > 60 {
		t.Fatalf("sorted-words component exceeds cap: %d chars", len(key.SortedWords))
	}
}

func TestSerializeParse_RoundTrip(t *testing.T) {
	t.Parallel()

	key := Compute("Neutron stars spin up to 716 times per second near the Crab Nebula")
	parsed, err := Parse(key.String())
	if err != nil {
		t.Fatalf("parse serialized key: %v", err)
	}
	if parsed.Normalized != key.Normalized {
		t.Fatalf("normalized mismatch after round trip: %q vs %q", parsed.Normalized, key.Normalized)
	}
	if !reflect.DeepEqual(parsed.Numbers, key.Numbers) {
		t.Fatalf("numbers mismatch after round trip: %v vs %v", parsed.Numbers, key.Numbers)
	}
	if !reflect.DeepEqual(parsed.ProperNouns, key.ProperNouns) {
		t.Fatalf("proper nouns mismatch after round trip: %v vs %v", parsed.ProperNouns, key.ProperNouns)
	}
}

func TestParse_RejectsLegacyHash(t *testing.T) {
	t.Parallel()

	if _, err := Parse(LegacyHash("some old record content")); err == nil {
		t.Fatal("expected legacy hash to be rejected by Parse")
	}
}

func TestLegacyHash(t *testing.T) {
	t.Parallel()

	if got := LegacyHash("The Moon, 384,400 km!"); got != "themoon384400km" {
		t.Fatalf("unexpected legacy hash: %q", got)
	}

	long := ""
	for i := 0; i < 40; i++ {
		long += "abc"
	}
	if got := LegacyHash(long); len(got) != 50 {
		t.Fatalf("expected legacy hash capped at 50 chars, got %d", len(got))
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	left := SignalWords("Octopuses have three hearts and blue blood in their bodies")
	right := SignalWords("Octopuses have three hearts and pump blue blood through bodies")
	score := Jaccard(left, right)
	if score < 0.70 {
		t.Fatalf("expected paraphrase pair at or above 0.70, got %f", score)
	}

	unrelated := SignalWords("Bananas are botanically classified as berries")
	if score := Jaccard(left, unrelated); score > 0.1 {
		t.Fatalf("expected unrelated texts near zero, got %f", score)
	}
}

func TestKeyPhrases(t *testing.T) {
	t.Parallel()

	phrases := KeyPhrases("The Crab Nebula pulsar spins 716 times per second and contains quantum degenerate matter")

	want := map[string]bool{
		"716 times":       false,
		"the crab nebula": false,
		"quantum":         false,
	}
	for _, phrase := range phrases {
		if _, ok := want[phrase]; ok {
			want[phrase] = true
		}
	}
	for phrase, found := range want {
		if !found {
			t.Fatalf("expected phrase %q in %v", phrase, phrases)
		}
	}
}

func TestKeyPhrases_DropsShortAndDuplicates(t *testing.T) {
	t.Parallel()

	phrases := KeyPhrases("DNA and DNA and 42")
	count := 0
	for _, phrase := range phrases {
		if phrase == "dna" {
			count++
		}
		if len(phrase) <= 2 {
			t.Fatalf("phrase %q shorter than minimum survived", phrase)
		}
	}
	if count != 1 {
		t.Fatalf("expected dna exactly once, got %d occurrences in %v", count, phrases)
	}
}
