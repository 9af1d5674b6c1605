package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"factflow.app/backend/internal/engagement"
)

// LoadProfile reads a user row into a progression profile. The boolean
// reports whether the user exists.
func (p *Pool) LoadProfile(ctx context.Context, userKey string) (engagement.Profile, bool, error) {
	const query = `
SELECT u.xp, u.level, u.next_level_xp, u.daily_xp, u.daily_goal, u.streak,
	COALESCE(u.last_active_day, ''), COALESCE(u.topics, 'null'::jsonb)::text
FROM factflow.users u
WHERE u.user_key = $1
`
	profile := engagement.Profile{UserKey: userKey}
	var topicsJSON string
	err := p.QueryRow(ctx, query, userKey).Scan(
		&profile.XP,
		&profile.Level,
		&profile.NextLevelXP,
		&profile.DailyXP,
		&profile.DailyGoal,
		&profile.Streak,
		&profile.LastActiveDay,
		&topicsJSON,
	)
	if err != nil {
		if IsNoRows(err) {
			return engagement.Profile{}, false, nil
		}
		return engagement.Profile{}, false, fmt.Errorf("query profile: %w", err)
	}

	if trimmed := strings.TrimSpace(topicsJSON); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), &profile.Topics); err != nil {
			return engagement.Profile{}, false, fmt.Errorf("decode profile topics: %w", err)
		}
	}
	return profile, true, nil
}

// SaveProfile upserts the user's progression row.
func (p *Pool) SaveProfile(ctx context.Context, profile engagement.Profile) error {
	topicsJSON, err := json.Marshal(profile.Topics)
	if err != nil {
		return fmt.Errorf("encode profile topics: %w", err)
	}

	var lastActiveDay *string
	if profile.LastActiveDay != "" {
		lastActiveDay = &profile.LastActiveDay
	}

	const query = `
INSERT INTO factflow.users (user_key, xp, level, next_level_xp, daily_xp, daily_goal, streak, last_active_day, topics, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, now())
ON CONFLICT (user_key) DO UPDATE SET
	xp = EXCLUDED.xp,
	level = EXCLUDED.level,
	next_level_xp = EXCLUDED.next_level_xp,
	daily_xp = EXCLUDED.daily_xp,
	daily_goal = EXCLUDED.daily_goal,
	streak = EXCLUDED.streak,
	last_active_day = EXCLUDED.last_active_day,
	topics = EXCLUDED.topics,
	updated_at = now()
`
	if _, err := p.Exec(ctx, query,
		profile.UserKey,
		profile.XP,
		profile.Level,
		profile.NextLevelXP,
		profile.DailyXP,
		profile.DailyGoal,
		profile.Streak,
		lastActiveDay,
		string(topicsJSON),
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
