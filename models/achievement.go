package models

import (
	"time"
)

// AilockAchievement: unlocked milestone instance. The composite unique index
// makes duplicate unlocks a storage-level no-op (insert with on-conflict-ignore).
type AilockAchievement struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AilockID string `gorm:"uniqueIndex:idx_ailock_achievement,priority:1;not null" json:"ailock_id"`

	AchievementID   string `gorm:"uniqueIndex:idx_ailock_achievement,priority:2;not null" json:"achievement_id"`
	AchievementName string `json:"achievement_name"`
	Description     string `json:"description"`
	Rarity          string `gorm:"size:16;default:common" json:"rarity"` // common, rare, epic, legendary

	UnlockedAt time.Time `json:"unlocked_at" gorm:"autoCreateTime"`
}

// AchievementTrigger: static unlock rule. Exactly one of Level, MinXP or
// EventType is set per rule; Matches evaluates whichever is present.
type AchievementTrigger struct {
	ID          string
	Name        string
	Description string
	Rarity      string
	Level       int         // unlock when a grant lands on this level
	MinXP       int64       // unlock when total XP reaches this
	EventType   XpEventType // unlock the first time this event is granted
}

// Matches reports whether the rule fires for the state reached by a grant.
func (t AchievementTrigger) Matches(eventType XpEventType, newXp int64, newLevel int) bool {
	if t.Level > 0 {
		return newLevel == t.Level
	}
	if t.MinXP > 0 {
		return newXp >= t.MinXP
	}
	if t.EventType != "" {
		return eventType == t.EventType
	}
	return false
}

// AchievementTriggers: evaluated after every successful XP grant.
var AchievementTriggers = []AchievementTrigger{
	{
		ID:          "rising_star",
		Name:        "Rising Star",
		Description: "Reached Level 5",
		Rarity:      "common",
		Level:       5,
	},
	{
		ID:          "ai_analyst",
		Name:        "AI Analyst",
		Description: "Reached Level 10",
		Rarity:      "rare",
		Level:       10,
	},
	{
		// Unreachable while the level cap stays at 20; kept pending a
		// product decision on raising the cap.
		ID:          "ai_master",
		Name:        "AI Master",
		Description: "Reached Level 25",
		Rarity:      "epic",
		Level:       25,
	},
	{
		ID:          "xp_collector",
		Name:        "XP Collector",
		Description: "Accumulated 1000 XP",
		Rarity:      "rare",
		MinXP:       1000,
	},
	{
		ID:          "first_intent",
		Name:        "First Intent",
		Description: "Created your first intent",
		Rarity:      "common",
		EventType:   EventIntentCreated,
	},
}
