package models

import (
	"time"
)

// MirroredUser is a local copy of a platform user row, kept fresh by the user
// sync worker. Only the fields the progression service needs are mirrored.
type MirroredUser struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	AccountStatus  string  `gorm:"size:32" json:"account_status"`
	EmailVerified  bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InteractionMirror holds per-user activity counters polled from the platform
// (intents created + chat sessions started). totalInteractions on the full
// profile is derived from these, not tracked independently.
type InteractionMirror struct {
	UserID         string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	IntentsCreated int64     `json:"intents_created" gorm:"default:0"`
	ChatSessions   int64     `json:"chat_sessions" gorm:"default:0"`
	UpdatedAt      time.Time `json:"updated_at"`
	SyncedAt       time.Time `json:"synced_at"`
}

// LeaderboardEntry is a snapshot row rebuilt periodically by the scheduler.
type LeaderboardEntry struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Rank       int       `gorm:"index;not null" json:"rank"`
	AilockID   string    `gorm:"uniqueIndex;not null" json:"ailock_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	XP         int64     `json:"xp"`
	ComputedAt time.Time `json:"computed_at"`
}
