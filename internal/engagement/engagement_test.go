package engagement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"factflow.app/backend/internal/globaltime"
)

type stubProfileStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
	loadErr  error
	saves    int
}

func (s *stubProfileStore) LoadProfile(ctx context.Context, userKey string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return Profile{}, false, s.loadErr
	}
	p, ok := s.profiles[userKey]
	return p, ok, nil
}

func (s *stubProfileStore) SaveProfile(ctx context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profiles == nil {
		s.profiles = make(map[string]Profile)
	}
	s.profiles[profile.UserKey] = profile
	s.saves++
	return nil
}

type stubSeenIndex struct {
	ids []string
	err error
}

func (s *stubSeenIndex) SeenFactIDs(ctx context.Context, userKey string) ([]string, error) {
	return s.ids, s.err
}

func newTestRecorder(store *stubProfileStore, seen SeenIndex) *Recorder {
	return NewRecorder(store, seen, zerolog.Nop())
}

func TestCreditView_IdempotentPerFact(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	rec := newTestRecorder(&stubProfileStore{}, nil)

	p, credited := rec.CreditView(context.Background(), "u1", "f1")
	if !credited || p.XP != XPPerFact {
		t.Fatalf("first view: credited=%v xp=%d", credited, p.XP)
	}
	p, credited = rec.CreditView(context.Background(), "u1", "f1")
	if credited {
		t.Fatal("repeat view of the same fact was credited")
	}
	if p.XP != XPPerFact {
		t.Fatalf("xp changed on repeat view: %d", p.XP)
	}
}

func TestCreditView_LevelThresholdsGrow(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	rec := newTestRecorder(&stubProfileStore{}, nil)

	var p Profile
	for i := 0; i < 10; i++ {
		p, _ = rec.CreditView(context.Background(), "u1", fmt.Sprintf("f%d", i))
	}
	if p.Level != 2 || p.NextLevelXP != 150 {
		t.Fatalf("after 100 total xp: level=%d next=%d", p.Level, p.NextLevelXP)
	}
	if p.XP != 0 {
		t.Fatalf("crossing a threshold should leave within-level xp at 0, got %d", p.XP)
	}

	// Level 3 costs another 150 xp on top of the 100 already spent.
	for i := 10; i < 24; i++ {
		p, _ = rec.CreditView(context.Background(), "u1", fmt.Sprintf("f%d", i))
	}
	if p.Level != 2 || p.XP != 140 {
		t.Fatalf("10 xp short of level 3: level=%d xp=%d", p.Level, p.XP)
	}

	p, _ = rec.CreditView(context.Background(), "u1", "f24")
	if p.Level != 3 || p.NextLevelXP != 225 || p.XP != 0 {
		t.Fatalf("after 250 total xp: level=%d next=%d xp=%d", p.Level, p.NextLevelXP, p.XP)
	}
}

func TestDailyGoal_StreakAcrossDays(t *testing.T) {
	defer globaltime.ResetTime()
	rec := newTestRecorder(&stubProfileStore{}, nil)
	ctx := context.Background()

	day := func(d int) time.Time {
		return time.Date(2025, 3, d, 9, 0, 0, 0, time.UTC)
	}

	globaltime.SetMockTime(day(1))
	var p Profile
	for i := 0; i < 11; i++ {
		p, _ = rec.CreditView(ctx, "u1", fmt.Sprintf("d1-%d", i))
	}
	if p.Streak != 1 {
		t.Fatalf("streak after meeting the goal once: %d", p.Streak)
	}

	globaltime.SetMockTime(day(2))
	for i := 0; i < 10; i++ {
		p, _ = rec.CreditView(ctx, "u1", fmt.Sprintf("d2-%d", i))
	}
	if p.Streak != 2 {
		t.Fatalf("streak after consecutive goal days: %d", p.Streak)
	}
	if p.DailyXP != 100 {
		t.Fatalf("daily progress did not reset on the new day: %d", p.DailyXP)
	}
}

func TestDailyGoal_MissedDayResetsStreak(t *testing.T) {
	defer globaltime.ResetTime()
	rec := newTestRecorder(&stubProfileStore{}, nil)
	ctx := context.Background()

	globaltime.SetMockTime(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	var p Profile
	for i := 0; i < 10; i++ {
		p, _ = rec.CreditView(ctx, "u1", fmt.Sprintf("d1-%d", i))
	}
	if p.Streak != 1 {
		t.Fatalf("streak setup failed: %d", p.Streak)
	}

	// One skipped calendar day keeps the streak alive.
	globaltime.SetMockTime(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))
	p, _ = rec.CreditView(ctx, "u1", "d2-0")
	if p.Streak != 1 {
		t.Fatalf("streak dropped without a full missed day: %d", p.Streak)
	}

	// Two days of silence resets it.
	globaltime.SetMockTime(time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC))
	p = rec.Profile(ctx, "u1")
	if p.Streak != 0 {
		t.Fatalf("streak survived a two-day gap: %d", p.Streak)
	}
	if p.DailyXP != 0 {
		t.Fatalf("daily progress survived the rollover: %d", p.DailyXP)
	}
}

func TestCreditView_SeededFromSeenIndex(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	rec := newTestRecorder(&stubProfileStore{}, &stubSeenIndex{ids: []string{"f1"}})

	if _, credited := rec.CreditView(context.Background(), "u1", "f1"); credited {
		t.Fatal("previously seen fact was credited again")
	}
	if p, credited := rec.CreditView(context.Background(), "u1", "f2"); !credited || p.XP != XPPerFact {
		t.Fatalf("fresh fact: credited=%v xp=%d", credited, p.XP)
	}
}

func TestRecorder_PersistsProfile(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	store := &stubProfileStore{}
	rec := newTestRecorder(store, nil)
	rec.CreditView(context.Background(), "u1", "f1")

	store.mu.Lock()
	saved, ok := store.profiles["u1"]
	store.mu.Unlock()
	if !ok || saved.XP != XPPerFact {
		t.Fatalf("profile not persisted after credit: ok=%v xp=%d", ok, saved.XP)
	}
}

func TestRecorder_LoadFailureStartsFresh(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	store := &stubProfileStore{loadErr: errors.New("db down")}
	rec := newTestRecorder(store, nil)

	p := rec.Profile(context.Background(), "u1")
	if p.Level != 1 || p.NextLevelXP != BaseLevelXP {
		t.Fatalf("expected a fresh profile, got level=%d next=%d", p.Level, p.NextLevelXP)
	}
}

type blockingProfileStore struct {
	stubProfileStore
	slowKey string
	started chan struct{}
	release chan struct{}
}

func (s *blockingProfileStore) LoadProfile(ctx context.Context, userKey string) (Profile, bool, error) {
	if userKey == s.slowKey {
		close(s.started)
		<-s.release
	}
	return s.stubProfileStore.LoadProfile(ctx, userKey)
}

func TestCreditView_SlowLoadBlocksOnlyThatUser(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	store := &blockingProfileStore{
		slowKey: "slow",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	rec := NewRecorder(store, nil, zerolog.Nop())
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() {
		_, credited := rec.CreditView(ctx, "slow", "f1")
		done <- credited
	}()

	// While the slow user's profile load hangs, another user's credit
	// must still complete.
	<-store.started
	if p, credited := rec.CreditView(ctx, "fast", "f1"); !credited || p.XP != XPPerFact {
		t.Fatalf("fast user stalled behind slow load: credited=%v xp=%d", credited, p.XP)
	}

	close(store.release)
	if credited := <-done; !credited {
		t.Fatal("slow user's credit was lost")
	}
}
