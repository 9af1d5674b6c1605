package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"factflow.app/backend/internal/ledger"
)

// Session holds one user's running feed. A single in-flight guard keeps
// concurrent page requests from interleaving their dedup state: the second
// caller gets the current feed back unchanged instead of a second load.
type Session struct {
	mu        sync.Mutex
	userKey   string
	ledger    *ledger.Ledger
	assembler *Assembler
	logger    zerolog.Logger
	feed      []Fact
	loading   bool
}

func NewSession(userKey string, l *ledger.Ledger, a *Assembler, logger zerolog.Logger) *Session {
	return &Session{
		userKey:   userKey,
		ledger:    l,
		assembler: a,
		logger:    logger.With().Str("user", userKey).Logger(),
	}
}

func (s *Session) UserKey() string {
	return s.userKey
}

func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Feed returns a copy of the current merged feed.
func (s *Session) Feed() []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Fact, len(s.feed))
	copy(out, s.feed)
	return out
}

// NextPage loads, merges and tracks one page of facts, returning the full
// feed after the append. Tracking happens at merge acceptance, not at load
// time, so a candidate dropped for topic spacing stays eligible for a later
// page.
func (s *Session) NextPage(ctx context.Context, topicHints []string, pageSize int) []Fact {
	s.mu.Lock()
	if s.loading {
		out := make([]Fact, len(s.feed))
		copy(out, s.feed)
		s.mu.Unlock()
		return out
	}
	s.loading = true
	existing := make([]Fact, len(s.feed))
	copy(existing, s.feed)
	s.mu.Unlock()

	page := s.assembler.LoadPage(ctx, s.ledger, topicHints, pageSize)
	accepted := MergeIntoFeed(existing, page, s.assembler.opts.AdInterval)
	for _, fact := range accepted {
		if fact.IsAd {
			continue
		}
		s.ledger.Track(fact.ID, fact.Content)
	}

	s.mu.Lock()
	s.feed = append(s.feed, accepted...)
	out := make([]Fact, len(s.feed))
	copy(out, s.feed)
	s.loading = false
	s.mu.Unlock()

	if len(accepted) > 0 {
		go s.assembler.Replenish(context.WithoutCancel(ctx), topicHints)
	}

	return out
}

// Clear drops the in-memory feed without touching the ledger. Used when a
// user switches topic preferences and wants a fresh stream.
func (s *Session) Clear() {
	s.mu.Lock()
	s.feed = nil
	s.mu.Unlock()
}
