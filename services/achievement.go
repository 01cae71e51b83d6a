package services

import (
	"log"

	"ailock-progression-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// CheckAndUnlock evaluates every trigger against the state reached by an XP
// grant and inserts the ones that fire. Inserts ride the unique
// (ailock_id, achievement_id) index with on-conflict-ignore, so a rule firing
// twice — even from concurrent grants — persists exactly one row.
func (s *AchievementService) CheckAndUnlock(ailockID string, eventType models.XpEventType, newXp int64, newLevel int) ([]models.AilockAchievement, error) {
	var unlocked []models.AilockAchievement

	for _, trigger := range models.AchievementTriggers {
		if !trigger.Matches(eventType, newXp, newLevel) {
			continue
		}

		row := models.AilockAchievement{
			ID:              uuid.NewString(),
			AilockID:        ailockID,
			AchievementID:   trigger.ID,
			AchievementName: trigger.Name,
			Description:     trigger.Description,
			Rarity:          trigger.Rarity,
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ailock_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return unlocked, res.Error
		}
		if res.RowsAffected > 0 {
			unlocked = append(unlocked, row)
			log.Printf("🎖️ Achievement unlocked: %s → ailock %s", trigger.Name, ailockID)
		}
	}

	return unlocked, nil
}

// ListForAilock returns all unlocked achievements, newest first.
func (s *AchievementService) ListForAilock(ailockID string) ([]models.AilockAchievement, error) {
	var achievements []models.AilockAchievement
	err := s.DB.Where("ailock_id = ?", ailockID).
		Order("unlocked_at DESC").
		Find(&achievements).Error
	return achievements, err
}
