package models

import (
	"time"

	"gorm.io/gorm"
)

// AilockProfile is the gamified AI-companion record, one per platform user.
type AilockProfile struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to profile service

	Name        string `json:"name" gorm:"default:Ailock"`
	ShareHandle string `json:"share_handle,omitempty"` // URL-safe slug of Name, set on rename
	AvatarURL   string `json:"avatar_url,omitempty" gorm:"type:text"`

	// Core progression
	XP          int64 `json:"xp" gorm:"default:0"`
	Level       int   `json:"level" gorm:"default:1"` // always derived from XP, never client-set
	SkillPoints int   `json:"skill_points" gorm:"default:1"`

	// Characteristics (cosmetic stat block, seeded at creation)
	Velocity      int `json:"velocity" gorm:"default:10"`
	Insight       int `json:"insight" gorm:"default:10"`
	Efficiency    int `json:"efficiency" gorm:"default:10"`
	Creativity    int `json:"creativity" gorm:"default:10"`
	Collaboration int `json:"collaboration" gorm:"default:10"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
