package models

import (
	"time"
)

// AilockSkill is an unlocked-skill instance. A row only exists once the skill
// has been unlocked at least to level 1.
type AilockSkill struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AilockID string `gorm:"uniqueIndex:idx_ailock_skill,priority:1;not null" json:"ailock_id"`
	SkillID  string `gorm:"uniqueIndex:idx_ailock_skill,priority:2;not null" json:"skill_id"`

	SkillName    string  `json:"skill_name"`
	Branch       string  `gorm:"size:32" json:"branch"`
	CurrentLevel int     `json:"current_level" gorm:"default:1"`
	UsageCount   int64   `json:"usage_count" gorm:"default:0"`
	SuccessRate  float64 `json:"success_rate" gorm:"default:0"`

	UnlockedAt time.Time `json:"unlocked_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
