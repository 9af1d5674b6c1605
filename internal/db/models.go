package db

import (
	"encoding/json"
	"time"
)

// User maps factflow.users.
type User struct {
	UserKey       string          `gorm:"column:user_key;type:text;primaryKey"`
	XP            int             `gorm:"column:xp;type:integer;not null;default:0"`
	Level         int             `gorm:"column:level;type:integer;not null;default:1"`
	NextLevelXP   int             `gorm:"column:next_level_xp;type:integer;not null;default:100"`
	DailyXP       int             `gorm:"column:daily_xp;type:integer;not null;default:0"`
	DailyGoal     int             `gorm:"column:daily_goal;type:integer;not null;default:100"`
	Streak        int             `gorm:"column:streak;type:integer;not null;default:0"`
	LastActiveDay *string         `gorm:"column:last_active_day;type:text"`
	Topics        json.RawMessage `gorm:"column:topics;type:jsonb"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (User) TableName() string { return "factflow.users" }

// CachedFact maps factflow.cached_facts, the shared candidate pool.
type CachedFact struct {
	FactID     string    `gorm:"column:fact_id;type:text;primaryKey"`
	Topic      string    `gorm:"column:topic;type:text;not null;index"`
	Content    string    `gorm:"column:content;type:text;not null"`
	SourceName string    `gorm:"column:source_name;type:text;not null;default:''"`
	SourceURL  string    `gorm:"column:source_url;type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (CachedFact) TableName() string { return "factflow.cached_facts" }

// UserSeenFact maps factflow.user_seen_facts, the durable seen ledger.
type UserSeenFact struct {
	UserKey     string    `gorm:"column:user_key;type:text;primaryKey"`
	FactID      string    `gorm:"column:fact_id;type:text;primaryKey"`
	ContentHash string    `gorm:"column:content_hash;type:text;not null;default:''"`
	Liked       *bool     `gorm:"column:liked"`
	SeenAt      time.Time `gorm:"column:seen_at;type:timestamptz;not null;default:now()"`
}

func (UserSeenFact) TableName() string { return "factflow.user_seen_facts" }

// SharedFact maps factflow.shared_facts, a snapshot per share link.
type SharedFact struct {
	ShareID    string    `gorm:"column:share_id;type:text;primaryKey"`
	FactID     string    `gorm:"column:fact_id;type:text;not null"`
	Topic      string    `gorm:"column:topic;type:text;not null"`
	Content    string    `gorm:"column:content;type:text;not null"`
	SourceName string    `gorm:"column:source_name;type:text;not null;default:''"`
	SourceURL  string    `gorm:"column:source_url;type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (SharedFact) TableName() string { return "factflow.shared_facts" }

func autoMigrateModels() []any {
	return []any{
		&User{},
		&CachedFact{},
		&UserSeenFact{},
		&SharedFact{},
	}
}
