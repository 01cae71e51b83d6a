package models

import (
	"time"

	"gorm.io/datatypes"
)

// XpEventType enumerates the actions that earn XP.
type XpEventType string

const (
	EventChatMessageSent       XpEventType = "chat_message_sent"
	EventVoiceMessageSent      XpEventType = "voice_message_sent"
	EventIntentCreated         XpEventType = "intent_created"
	EventSkillUsedSuccessfully XpEventType = "skill_used_successfully"
	EventAchievementUnlocked   XpEventType = "achievement_unlocked"
	EventProjectStarted        XpEventType = "project_started"
	EventProjectCompleted      XpEventType = "project_completed"
	EventFirstLoginToday       XpEventType = "first_login_today"
)

// XpEvent is an append-only history row written on every successful XP grant.
type XpEvent struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AilockID string `gorm:"index;not null" json:"ailock_id"`

	EventType   string `gorm:"size:50;not null" json:"event_type"`
	XPGained    int64  `json:"xp_gained" gorm:"not null"`
	Description string `json:"description"`

	// Open-ended per-event metadata (intent id, chat session id, ...)
	Context datatypes.JSONMap `json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
