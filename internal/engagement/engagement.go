package engagement

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"factflow.app/backend/internal/globaltime"
)

const (
	XPPerFact   = 10
	DailyGoalXP = 100
	BaseLevelXP = 100

	// levelGrowth widens each level threshold; the floor keeps thresholds
	// integral so progress bars render cleanly.
	levelGrowth = 1.5

	dayLayout = "2006-01-02"
)

// Profile is a user's progression state. XP counts progress within the
// current level and resets when a threshold is crossed, so XP/NextLevelXP
// is a progress fraction. LastActiveDay is a UTC calendar date in
// 2006-01-02 form; an empty value means the user has never earned XP.
type Profile struct {
	UserKey       string   `json:"user_key"`
	XP            int      `json:"xp"`
	Level         int      `json:"level"`
	NextLevelXP   int      `json:"next_level_xp"`
	DailyXP       int      `json:"daily_xp"`
	DailyGoal     int      `json:"daily_goal"`
	Streak        int      `json:"streak"`
	LastActiveDay string   `json:"last_active_day,omitempty"`
	Topics        []string `json:"topics,omitempty"`
}

func NewProfile(userKey string) Profile {
	return Profile{
		UserKey:     userKey,
		Level:       1,
		NextLevelXP: BaseLevelXP,
		DailyGoal:   DailyGoalXP,
	}
}

type ProfileStore interface {
	LoadProfile(ctx context.Context, userKey string) (Profile, bool, error)
	SaveProfile(ctx context.Context, profile Profile) error
}

// SeenIndex supplies the fact ids a user has already been credited for, so
// restarts do not hand out XP twice for the same fact.
type SeenIndex interface {
	SeenFactIDs(ctx context.Context, userKey string) ([]string, error)
}

type userState struct {
	mu       sync.Mutex
	loaded   bool
	seeded   bool
	profile  Profile
	credited map[string]struct{}
}

// Recorder tracks XP, levels and daily streaks per user. Crediting is
// idempotent per fact id. State is locked per user; the recorder-wide
// mutex guards only the map, so one user's slow profile load never blocks
// another user's credit.
type Recorder struct {
	mu     sync.Mutex
	store  ProfileStore
	seen   SeenIndex
	logger zerolog.Logger
	users  map[string]*userState
}

func NewRecorder(store ProfileStore, seen SeenIndex, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		seen:   seen,
		logger: logger,
		users:  make(map[string]*userState),
	}
}

// Profile returns the user's progression state with the streak rollover
// applied for the current day.
func (r *Recorder) Profile(ctx context.Context, userKey string) Profile {
	state := r.state(userKey)
	state.mu.Lock()
	defer state.mu.Unlock()
	r.ensure(ctx, userKey, state)
	r.rollover(&state.profile, globaltime.UTC())
	return state.profile
}

// UpdateTopics replaces the user's topic preferences and persists them.
func (r *Recorder) UpdateTopics(ctx context.Context, userKey string, topics []string) Profile {
	state := r.state(userKey)
	state.mu.Lock()
	r.ensure(ctx, userKey, state)
	state.profile.Topics = append([]string(nil), topics...)
	profile := state.profile
	state.mu.Unlock()

	r.save(ctx, profile)
	return profile
}

// CreditView awards XP for a viewed fact. The second return reports whether
// the view was credited; repeat views of the same fact are not. Crossing a
// level threshold subtracts it, so XP carries only within-level progress.
func (r *Recorder) CreditView(ctx context.Context, userKey, factID string) (Profile, bool) {
	now := globaltime.UTC()

	state := r.state(userKey)
	state.mu.Lock()
	r.ensure(ctx, userKey, state)
	if _, done := state.credited[factID]; done {
		profile := state.profile
		state.mu.Unlock()
		return profile, false
	}
	state.credited[factID] = struct{}{}

	p := &state.profile
	r.rollover(p, now)

	beforeDaily := p.DailyXP
	p.XP += XPPerFact
	p.DailyXP += XPPerFact
	for p.XP >= p.NextLevelXP {
		p.XP -= p.NextLevelXP
		p.Level++
		p.NextLevelXP = int(math.Floor(float64(p.NextLevelXP) * levelGrowth))
	}
	if beforeDaily < p.DailyGoal && p.DailyXP >= p.DailyGoal {
		p.Streak++
	}
	p.LastActiveDay = now.Format(dayLayout)
	profile := state.profile
	state.mu.Unlock()

	r.save(ctx, profile)
	return profile, true
}

// rollover resets daily progress on a date change and drops the streak
// after a full missed day. Caller holds the mutex.
func (r *Recorder) rollover(p *Profile, now time.Time) {
	today := now.Format(dayLayout)
	if p.LastActiveDay == "" || p.LastActiveDay == today {
		return
	}
	last, err := time.Parse(dayLayout, p.LastActiveDay)
	if err != nil {
		p.LastActiveDay = today
		p.DailyXP = 0
		return
	}
	gap := int(now.Truncate(24 * time.Hour).Sub(last).Hours() / 24)
	if gap >= 2 {
		p.Streak = 0
	}
	p.DailyXP = 0
	p.LastActiveDay = today
}

// state returns the in-memory record for the user, creating an empty one
// on first access. No I/O happens under the recorder-wide mutex.
func (r *Recorder) state(userKey string) *userState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.users[userKey]
	if !ok {
		state = &userState{credited: make(map[string]struct{})}
		r.users[userKey] = state
	}
	return state
}

// ensure loads the stored profile and the already-credited fact ids on
// first access. Caller holds the user's state mutex, so the store calls
// block only that user.
func (r *Recorder) ensure(ctx context.Context, userKey string, state *userState) {
	if !state.loaded {
		profile, found, err := r.store.LoadProfile(ctx, userKey)
		if err != nil {
			r.logger.Warn().Err(err).Str("user", userKey).Msg("profile load failed, starting fresh")
		}
		if found && err == nil {
			state.profile = profile
		} else {
			state.profile = NewProfile(userKey)
		}
		state.loaded = true
	}
	if !state.seeded && r.seen != nil {
		ids, err := r.seen.SeenFactIDs(ctx, userKey)
		if err != nil {
			r.logger.Warn().Err(err).Str("user", userKey).Msg("credited-fact seed unavailable")
		} else {
			for _, id := range ids {
				state.credited[id] = struct{}{}
			}
			state.seeded = true
		}
	}
}

func (r *Recorder) save(ctx context.Context, profile Profile) {
	if err := r.store.SaveProfile(ctx, profile); err != nil {
		r.logger.Warn().Err(err).Str("user", profile.UserKey).Msg("profile save failed")
	}
}
