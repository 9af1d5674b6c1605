package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"factflow.app/backend/internal/ledger"
)

// Registry hands out one Session per user key, creating the ledger and
// hydrating it from the durable store on first access.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	store     ledger.SeenStore
	assembler *Assembler
	tuning    ledger.Tuning
	logger    zerolog.Logger
}

func NewRegistry(store ledger.SeenStore, assembler *Assembler, tuning ledger.Tuning, logger zerolog.Logger) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		store:     store,
		assembler: assembler,
		tuning:    tuning,
		logger:    logger,
	}
}

// Session returns the user's session, creating and hydrating it if absent.
// Hydration failures are non-fatal; the ledger retries on the next access.
func (r *Registry) Session(ctx context.Context, userKey string) *Session {
	r.mu.Lock()
	sess, ok := r.sessions[userKey]
	if !ok {
		l := ledger.New(r.store, r.logger, userKey, r.tuning)
		sess = NewSession(userKey, l, r.assembler, r.logger)
		r.sessions[userKey] = sess
	}
	r.mu.Unlock()

	sess.Ledger().Hydrate(ctx)
	return sess
}

// Drop removes a user's session so the next access starts a fresh one.
func (r *Registry) Drop(userKey string) {
	r.mu.Lock()
	delete(r.sessions, userKey)
	r.mu.Unlock()
}
