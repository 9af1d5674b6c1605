package feed

import (
	"context"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"factflow.app/backend/internal/globaltime"
	"factflow.app/backend/internal/ledger"
)

const (
	DefaultPageSize   = 30
	DefaultAdInterval = 8

	// defaultMinUnseen triggers the generator when the cached pool runs
	// dry for this user.
	defaultMinUnseen = 5

	defaultFetchLimit  = 2000
	defaultTopicTarget = 200

	poolCacheSize = 16
	// poolCacheTTL bounds how long another writer's facts (CLI seeding,
	// a second instance) stay invisible to this process.
	poolCacheTTL = 2 * time.Minute

	// excludeSampleSize caps the known-fact list handed to the generator;
	// the client clips its prompt to the same count.
	excludeSampleSize = 20
)

// PoolSource is the shared cross-user reservoir of candidate facts. It may
// return already-seen facts; filtering is the assembler's job.
type PoolSource interface {
	FetchCandidatePool(ctx context.Context, topicHints []string, limit int) ([]Fact, error)
	SaveFacts(ctx context.Context, facts []Fact) error
	PoolStats(ctx context.Context) (map[string]int64, error)
}

// SeenBackstop supplies durable seen-fact ids for the defensive judge rule
// when session hydration was skipped or partial.
type SeenBackstop interface {
	SeenFactIDs(ctx context.Context, userKey string) ([]string, error)
}

// Generator produces fresh candidate facts from an external model.
type Generator interface {
	GenerateFacts(ctx context.Context, topicHints []string, exclude []string) ([]Fact, error)
}

// Options tunes the assembler. Zero values fall back to the reference
// defaults.
type Options struct {
	PageSize    int
	AdInterval  int
	MinUnseen   int
	FetchLimit  int
	TopicTarget int64
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.AdInterval <= 0 {
		o.AdInterval = DefaultAdInterval
	}
	if o.MinUnseen <= 0 {
		o.MinUnseen = defaultMinUnseen
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = defaultFetchLimit
	}
	if o.TopicTarget <= 0 {
		o.TopicTarget = defaultTopicTarget
	}
	return o
}

// Assembler pulls candidates from the pool, filters them through a user's
// ledger, and produces shuffled unseen pages. One assembler serves all
// sessions.
type Assembler struct {
	source    PoolSource
	backstop  SeenBackstop
	generator Generator
	logger    zerolog.Logger
	opts      Options

	poolCache    *lru.Cache
	replenishing atomic.Bool
}

func NewAssembler(source PoolSource, backstop SeenBackstop, generator Generator, logger zerolog.Logger, opts Options) *Assembler {
	cache, _ := lru.New(poolCacheSize)
	return &Assembler{
		source:    source,
		backstop:  backstop,
		generator: generator,
		logger:    logger,
		opts:      opts.withDefaults(),
		poolCache: cache,
	}
}

// LoadPage returns up to pageSize unseen facts: candidate pool fetch,
// ledger filter, unbiased shuffle, truncate. It does not track the page;
// tracking happens when facts are accepted into a session feed, under the
// session's in-flight guard.
func (a *Assembler) LoadPage(ctx context.Context, l *ledger.Ledger, topicHints []string, pageSize int) []Fact {
	if pageSize <= 0 {
		pageSize = a.opts.PageSize
	}

	var durableIDs []string
	if a.backstop != nil {
		ids, err := a.backstop.SeenFactIDs(ctx, l.UserKey())
		if err != nil {
			a.logger.Warn().Err(err).Msg("durable seen-id backstop unavailable")
		} else {
			durableIDs = ids
		}
	}

	candidates := a.fetchPool(ctx, topicHints)
	unseen := a.filterUnseen(l, candidates, durableIDs)

	if len(unseen) < a.opts.MinUnseen && a.generator != nil {
		generated := a.generate(ctx, topicHints, excludeSample(candidates, excludeSampleSize))
		unseen = append(unseen, a.filterUnseen(l, generated, durableIDs)...)
	}

	if len(unseen) == 0 {
		unseen = a.filterUnseen(l, FallbackFacts(), durableIDs)
	}

	shuffleFacts(unseen, rand.Intn)
	if len(unseen) > pageSize {
		unseen = unseen[:pageSize]
	}
	return unseen
}

type cachedPool struct {
	facts     []Fact
	fetchedAt time.Time
}

func (a *Assembler) fetchPool(ctx context.Context, topicHints []string) []Fact {
	cacheKey := strings.Join(topicHints, ",")
	if cached, ok := a.poolCache.Get(cacheKey); ok {
		if entry, ok := cached.(cachedPool); ok && globaltime.UTC().Sub(entry.fetchedAt) < poolCacheTTL {
			return entry.facts
		}
	}

	facts, err := a.source.FetchCandidatePool(ctx, topicHints, a.opts.FetchLimit)
	if err != nil {
		a.logger.Warn().Err(err).Msg("candidate pool fetch failed")
		return nil
	}
	a.poolCache.Add(cacheKey, cachedPool{facts: facts, fetchedAt: globaltime.UTC()})
	return facts
}

func (a *Assembler) filterUnseen(l *ledger.Ledger, candidates []Fact, durableIDs []string) []Fact {
	unseen := make([]Fact, 0, len(candidates))
	for _, fact := range candidates {
		if fact.IsAd {
			continue
		}
		if l.IsSeen(fact.ID, fact.Content, durableIDs) {
			continue
		}
		unseen = append(unseen, fact)
	}
	return unseen
}

// recentContents samples the newest pooled facts for a topic so the
// generator is told what to avoid paraphrasing.
func (a *Assembler) recentContents(ctx context.Context, topic string) []string {
	facts, err := a.source.FetchCandidatePool(ctx, []string{topic}, excludeSampleSize)
	if err != nil {
		a.logger.Warn().Err(err).Str("topic", topic).Msg("exclusion sample fetch failed")
		return nil
	}
	return excludeSample(facts, excludeSampleSize)
}

func excludeSample(facts []Fact, limit int) []string {
	contents := make([]string, 0, limit)
	for _, fact := range facts {
		if fact.IsAd || strings.TrimSpace(fact.Content) == "" {
			continue
		}
		contents = append(contents, fact.Content)
		if len(contents) == limit {
			break
		}
	}
	return contents
}

func (a *Assembler) generate(ctx context.Context, topicHints []string, exclude []string) []Fact {
	facts, err := a.generator.GenerateFacts(ctx, topicHints, exclude)
	if err != nil {
		a.logger.Warn().Err(err).Msg("on-demand fact generation failed")
		return nil
	}
	if len(facts) == 0 {
		return nil
	}

	// Share the fresh batch with other users; failure only costs reuse.
	if err := a.source.SaveFacts(ctx, facts); err != nil {
		a.logger.Warn().Err(err).Msg("generated facts not saved to pool")
	} else {
		a.poolCache.Purge()
	}
	return facts
}

// Replenish keeps the shared pool stocked per topic. Fire-and-forget and
// single-flight: concurrent calls while one is running are no-ops.
func (a *Assembler) Replenish(ctx context.Context, userTopics []string) {
	if a.generator == nil || !a.replenishing.CompareAndSwap(false, true) {
		return
	}
	defer a.replenishing.Store(false)

	stats, err := a.source.PoolStats(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("pool stats unavailable, skipping replenishment")
		return
	}

	needed := make([]string, 0, len(AllTopics))
	for _, topic := range AllTopics {
		if stats[topic] < a.opts.TopicTarget {
			needed = append(needed, topic)
		}
	}
	if len(needed) == 0 {
		return
	}

	// Prioritize the user's topics, then fill from the rest.
	priority := make([]string, 0, len(needed))
	other := make([]string, 0, len(needed))
	userSet := make(map[string]struct{}, len(userTopics))
	for _, topic := range userTopics {
		userSet[topic] = struct{}{}
	}
	for _, topic := range needed {
		if _, ok := userSet[topic]; ok {
			priority = append(priority, topic)
		} else {
			other = append(other, topic)
		}
	}
	shuffleTopics(priority)
	shuffleTopics(other)
	targets := append(firstN(priority, 3), firstN(other, 2)...)

	for _, topic := range targets {
		facts, genErr := a.generator.GenerateFacts(ctx, []string{topic}, a.recentContents(ctx, topic))
		if genErr != nil {
			a.logger.Warn().Err(genErr).Str("topic", topic).Msg("pool replenishment generation failed")
			continue
		}
		if len(facts) == 0 {
			continue
		}
		if saveErr := a.source.SaveFacts(ctx, facts); saveErr != nil {
			a.logger.Warn().Err(saveErr).Str("topic", topic).Msg("pool replenishment save failed")
			continue
		}
		a.logger.Info().Str("topic", topic).Int("facts", len(facts)).Msg("replenished fact pool")
	}
	a.poolCache.Purge()
}

// shuffleFacts performs an unbiased Fisher-Yates shuffle.
func shuffleFacts(facts []Fact, intn func(n int) int) {
	for i := len(facts) - 1; i > 0; i-- {
		j := intn(i + 1)
		facts[i], facts[j] = facts[j], facts[i]
	}
}

func shuffleTopics(topics []string) {
	for i := len(topics) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		topics[i], topics[j] = topics[j], topics[i]
	}
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
