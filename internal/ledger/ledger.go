package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"factflow.app/backend/internal/fingerprint"
	"factflow.app/backend/internal/globaltime"
)

// SeenRecord is the durable per-(user, fact) exposure row as the ledger
// consumes it during hydration.
type SeenRecord struct {
	FactID      string
	ContentHash string
}

// SeenStore is the durable backstop behind the session ledger. All calls
// are best-effort from the ledger's point of view.
type SeenStore interface {
	SeenRecords(ctx context.Context, userKey string) ([]SeenRecord, error)
	UpsertSeenRecord(ctx context.Context, userKey, factID, contentHash string, liked *bool, seenAt time.Time) error
}

// Tuning holds the similarity thresholds. They are empirically chosen
// defaults, not derived values.
type Tuning struct {
	// JaccardThreshold is the minimum word-set overlap treated as a
	// paraphrase duplicate.
	JaccardThreshold float64
	// JaccardMinLen is the minimum text length before word overlap is
	// considered meaningful.
	JaccardMinLen int
	// NumericMinLen is the minimum digit-run length for numeric-context
	// matching.
	NumericMinLen int
	// ContextWindow is the width of the text window sampled around a
	// matched number.
	ContextWindow int
	// ContextProbeLen is how much of that window must be contained in a
	// stored hash to count as a match.
	ContextProbeLen int
}

// DefaultTuning returns the reference thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		JaccardThreshold: 0.70,
		JaccardMinLen:    30,
		NumericMinLen:    3,
		ContextWindow:    20,
		ContextProbeLen:  10,
	}
}

// Ledger tracks every fact identifier, content hash, key phrase and
// significant number a user has been exposed to during the current session.
// It is the single source of truth for duplicate decisions within a process
// lifetime; the durable store is a cross-session backstop only.
type Ledger struct {
	mu     sync.Mutex
	store  SeenStore
	logger zerolog.Logger
	tuning Tuning

	userKey    string
	loaded     bool
	generation uint64

	seenIDs      map[string]struct{}
	seenHashes   map[string]struct{}
	legacyHashes map[string]struct{}
	phrases      map[string]struct{}
	numbers      map[string]struct{}
	normalized   map[string]struct{}
}

// New builds an empty ledger for one user session. A nil store degrades to
// session-only tracking.
func New(store SeenStore, logger zerolog.Logger, userKey string, tuning Tuning) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logger,
		tuning: tuning,
	}
	l.reset(userKey)
	return l
}

func (l *Ledger) reset(userKey string) {
	l.userKey = userKey
	l.loaded = false
	l.generation++
	l.seenIDs = make(map[string]struct{})
	l.seenHashes = make(map[string]struct{})
	l.legacyHashes = make(map[string]struct{})
	l.phrases = make(map[string]struct{})
	l.numbers = make(map[string]struct{})
	l.normalized = make(map[string]struct{})
}

// Reset discards all session state and rebinds the ledger to a new user
// key. Outstanding async writes from the previous user become no-ops.
func (l *Ledger) Reset(userKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset(userKey)
}

// Hydrate loads the user's durable seen records into the session sets.
// It runs at most once per session; store failures leave the ledger in
// session-only mode and are never fatal.
func (l *Ledger) Hydrate(ctx context.Context) {
	l.mu.Lock()
	if l.loaded || l.store == nil {
		l.mu.Unlock()
		return
	}
	userKey := l.userKey
	generation := l.generation
	l.mu.Unlock()

	records, err := l.store.SeenRecords(ctx, userKey)
	if err != nil {
		l.logger.Warn().Err(err).Str("user", userKey).Msg("seen-record hydration failed, continuing session-only")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != generation {
		// Ledger was rebound to another user while the read was in flight.
		return
	}

	for _, record := range records {
		l.seenIDs[record.FactID] = struct{}{}
		hash := strings.TrimSpace(record.ContentHash)
		if hash == "" {
			continue
		}
		key, parseErr := fingerprint.Parse(hash)
		if parseErr != nil {
			l.legacyHashes[hash] = struct{}{}
			continue
		}
		l.seenHashes[hash] = struct{}{}
		l.normalized[key.Normalized] = struct{}{}
		for _, number := range key.Numbers {
			l.numbers[number] = struct{}{}
		}
		for _, noun := range key.ProperNouns {
			phrase := strings.ToLower(noun)
			if len(phrase) > 2 {
				l.phrases[phrase] = struct{}{}
			}
		}
	}
	l.loaded = true
	l.logger.Info().Str("user", userKey).Int("records", len(records)).Msg("hydrated seen-fact ledger")
}

// Track records a fact's id, composite hash, key phrases and numbers in
// the session sets. Called both when a fact is fetched into a page and
// when it becomes visible.
func (l *Ledger) Track(factID, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.track(factID, content)
}

func (l *Ledger) track(factID, content string) {
	l.seenIDs[factID] = struct{}{}
	if strings.TrimSpace(content) == "" {
		return
	}

	key := fingerprint.Compute(content)
	l.seenHashes[key.String()] = struct{}{}
	l.normalized[key.Normalized] = struct{}{}
	for _, number := range key.Numbers {
		l.numbers[number] = struct{}{}
	}
	for _, phrase := range fingerprint.KeyPhrases(content) {
		l.phrases[phrase] = struct{}{}
	}
}

// MarkSeen commits a fact to the session ledger synchronously, then
// upserts the durable record in the background. Session correctness never
// depends on the durable write landing.
func (l *Ledger) MarkSeen(factID, content string) {
	if strings.TrimSpace(factID) == "" {
		return
	}

	l.mu.Lock()
	l.track(factID, content)
	userKey := l.userKey
	generation := l.generation
	store := l.store
	l.mu.Unlock()

	if store == nil || userKey == "" {
		return
	}

	contentHash := ""
	if strings.TrimSpace(content) != "" {
		contentHash = fingerprint.Compute(content).String()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.UpsertSeenRecord(ctx, userKey, factID, contentHash, nil, globaltime.UTC()); err != nil {
			if l.currentGeneration() == generation {
				l.logger.Warn().Err(err).Str("user", userKey).Str("fact_id", factID).Msg("seen-record persist failed")
			}
		}
	}()
}

// RecordLike persists a like flip for a fact the user has seen. The flip is
// optimistic: a failed write is logged and otherwise ignored.
func (l *Ledger) RecordLike(factID string, liked bool) {
	l.mu.Lock()
	userKey := l.userKey
	generation := l.generation
	store := l.store
	l.mu.Unlock()

	if store == nil || userKey == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		likedValue := liked
		if err := store.UpsertSeenRecord(ctx, userKey, factID, "", &likedValue, globaltime.UTC()); err != nil {
			if l.currentGeneration() == generation {
				l.logger.Warn().Err(err).Str("user", userKey).Str("fact_id", factID).Msg("like persist failed")
			}
		}
	}()
}

// Loaded reports whether durable hydration has completed this session.
func (l *Ledger) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// UserKey returns the identity key the ledger is bound to.
func (l *Ledger) UserKey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userKey
}

func (l *Ledger) currentGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}
