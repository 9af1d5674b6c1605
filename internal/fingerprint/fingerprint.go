package fingerprint

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	// serializationVersion identifies the composite scheme in persisted hashes.
	serializationVersion = "v2"

	normalizedMaxLen  = 60
	sortedWordsMaxLen = 60
	legacyHashMaxLen  = 50
	minSignalWordLen  = 3

	fieldSeparator = "|"
	listSeparator  = ","
)

var (
	digitRunPattern   = regexp.MustCompile(`[0-9]+`)
	properNounPattern = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`)
)

// CompositeKey is the multi-part fingerprint of a fact's text. Every
// component targets a distinct duplicate shape: Normalized catches exact
// rewording-free repeats, SortedWords catches reorderings, the halves catch
// truncation/continuation pairs, Numbers and ProperNouns survive heavier
// paraphrasing.
type CompositeKey struct {
	Normalized  string
	SortedWords string
	FirstHalf   string
	SecondHalf  string
	Numbers     []string
	ProperNouns []string
}

// Compute derives the composite key for a fact's content. Equal inputs
// always produce equal keys.
func Compute(content string) CompositeKey {
	normalized := NormalizeText(content)
	words := strings.Fields(normalized)

	signal := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > minSignalWordLen {
			signal = append(signal, word)
		}
	}
	sort.Strings(signal)

	mid := len(words) / 2

	return CompositeKey{
		Normalized:  truncate(normalized, normalizedMaxLen),
		SortedWords: truncate(strings.Join(signal, " "), sortedWordsMaxLen),
		FirstHalf:   strings.Join(words[:mid], " "),
		SecondHalf:  strings.Join(words[mid:], " "),
		Numbers:     digitRunPattern.FindAllString(content, -1),
		ProperNouns: properNounPattern.FindAllString(content, -1),
	}
}

// String serializes the key into the persisted contentHash format.
func (k CompositeKey) String() string {
	parts := []string{
		serializationVersion,
		sanitizeField(k.Normalized),
		sanitizeField(k.SortedWords),
		sanitizeField(k.FirstHalf),
		sanitizeField(k.SecondHalf),
		strings.Join(sanitizeList(k.Numbers), listSeparator),
		strings.Join(sanitizeList(k.ProperNouns), listSeparator),
	}
	return strings.Join(parts, fieldSeparator)
}

// Parse decodes a serialized composite key. Hashes written before the
// composite scheme existed do not parse; callers keep them in a legacy set.
func Parse(serialized string) (CompositeKey, error) {
	parts := strings.Split(serialized, fieldSeparator)
	if len(parts) != 7 || parts[0] != serializationVersion {
		return CompositeKey{}, fmt.Errorf("not a %s composite hash", serializationVersion)
	}
	return CompositeKey{
		Normalized:  parts[1],
		SortedWords: parts[2],
		FirstHalf:   parts[3],
		SecondHalf:  parts[4],
		Numbers:     splitList(parts[5]),
		ProperNouns: splitList(parts[6]),
	}, nil
}

// NormalizeText lowercases, strips punctuation to single spaces, and trims.
// It is the shared normal form for hashing and word-overlap comparison.
func NormalizeText(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	lastSpace := true
	for _, r := range strings.ToLower(content) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// LegacyHash reproduces the pre-composite single-hash scheme: lowercase,
// alphanumerics only, capped at 50 characters. Kept so records written
// under the old scheme still block re-offers.
func LegacyHash(content string) string {
	var b strings.Builder
	b.Grow(legacyHashMaxLen)
	for _, r := range strings.ToLower(content) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= legacyHashMaxLen {
				break
			}
		}
	}
	return b.String()
}

// SignalWords returns the set of words longer than three characters from
// the normalized form of text, for Jaccard comparison.
func SignalWords(text string) map[string]struct{} {
	words := strings.Fields(NormalizeText(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		if len(word) > minSignalWordLen {
			set[word] = struct{}{}
		}
	}
	return set
}

// Jaccard computes intersection-over-union of two word sets.
func Jaccard(left, right map[string]struct{}) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	intersection := 0
	for word := range left {
		if _, ok := right[word]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}
	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}

func sanitizeField(value string) string {
	return strings.ReplaceAll(value, fieldSeparator, " ")
}

func sanitizeList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ReplaceAll(value, fieldSeparator, " ")
		value = strings.ReplaceAll(value, listSeparator, " ")
		if value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, listSeparator)
}
