package ledger

import (
	"strings"

	"factflow.app/backend/internal/fingerprint"
)

// Match labels which rule classified a candidate as seen. The order of the
// rules is fixed: earlier rules are cheaper or more aggressive, and the
// first hit decides which telemetry path fires.
type Match string

const (
	MatchNone           Match = ""
	MatchSessionID      Match = "session_id"
	MatchCompositeHash  Match = "composite_hash"
	MatchLegacyHash     Match = "legacy_hash"
	MatchDurableID      Match = "durable_id"
	MatchKeyPhrase      Match = "key_phrase"
	MatchNumericContext Match = "numeric_context"
	MatchWordOverlap    Match = "word_overlap"
)

// IsSeen reports whether the candidate duplicates anything the user has
// been exposed to. durableSeenIDs is a defensive backstop for callers that
// fetched records out-of-band when hydration was skipped or partial.
func (l *Ledger) IsSeen(factID, content string, durableSeenIDs []string) bool {
	return l.Classify(factID, content, durableSeenIDs) != MatchNone
}

// Classify runs the duplicate rules in their fixed priority order and
// returns the first rule that fires.
func (l *Ledger) Classify(factID, content string, durableSeenIDs []string) Match {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seenIDs[factID]; ok {
		return MatchSessionID
	}

	key := fingerprint.Compute(content)
	if _, ok := l.seenHashes[key.String()]; ok {
		return MatchCompositeHash
	}

	if _, ok := l.legacyHashes[fingerprint.LegacyHash(content)]; ok {
		return MatchLegacyHash
	}

	for _, id := range durableSeenIDs {
		if id == factID {
			return MatchDurableID
		}
	}

	// Phrase collision is deliberately aggressive: one shared rare phrase
	// is strong duplicate evidence from a paraphrasing generator.
	for _, phrase := range fingerprint.KeyPhrases(content) {
		if _, ok := l.phrases[phrase]; ok {
			return MatchKeyPhrase
		}
	}

	if l.numericContextMatch(content, key.Numbers) {
		return MatchNumericContext
	}

	if l.wordOverlapMatch(content) {
		return MatchWordOverlap
	}

	return MatchNone
}

// numericContextMatch fires when a significant number has been seen before
// and the text surrounding its first occurrence resembles a stored hash.
func (l *Ledger) numericContextMatch(content string, numbers []string) bool {
	for _, number := range numbers {
		if len(number) < l.tuning.NumericMinLen {
			continue
		}
		if _, ok := l.numbers[number]; !ok {
			continue
		}

		probe := l.contextProbe(content, number)
		if probe == "" {
			continue
		}
		for hash := range l.seenHashes {
			if strings.Contains(strings.ToLower(hash), probe) {
				return true
			}
		}
	}
	return false
}

// contextProbe samples a window of surrounding text around the number's
// first occurrence and keeps its leading characters.
func (l *Ledger) contextProbe(content, number string) string {
	idx := strings.Index(content, number)
	if idx < 0 {
		return ""
	}

	half := l.tuning.ContextWindow / 2
	start := idx - half
	if start < 0 {
		start = 0
	}
	end := idx + len(number) + half
	if end > len(content) {
		end = len(content)
	}

	window := strings.ToLower(strings.TrimSpace(content[start:end]))
	if len(window) > l.tuning.ContextProbeLen {
		window = window[:l.tuning.ContextProbeLen]
	}
	return window
}

func (l *Ledger) wordOverlapMatch(content string) bool {
	if len(content) <= l.tuning.JaccardMinLen {
		return false
	}
	candidate := fingerprint.SignalWords(content)
	if len(candidate) == 0 {
		return false
	}

	for normalized := range l.normalized {
		if len(normalized) <= l.tuning.JaccardMinLen {
			continue
		}
		if fingerprint.Jaccard(candidate, fingerprint.SignalWords(normalized)) >= l.tuning.JaccardThreshold {
			return true
		}
	}
	return false
}
