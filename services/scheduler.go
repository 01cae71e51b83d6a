package services

import (
	"log"
	"time"

	"ailock-progression-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaderboardSize: profiles kept in the snapshot.
const LeaderboardSize = 100

// StartLeaderboardScheduler rebuilds the XP leaderboard snapshot periodically.
func (s *ProgressionService) StartLeaderboardScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Leaderboard] ⚠️ scheduler init failed, periodic rebuild disabled: %v", err)
		return
	}
	sched.Start()

	if _, err := sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := s.RebuildLeaderboard(); err != nil {
				log.Printf("[Leaderboard] rebuild failed: %v", err)
			}
		}),
	); err != nil {
		log.Printf("[Leaderboard] ⚠️ job registration failed, periodic rebuild disabled: %v", err)
	}
}

// RebuildLeaderboard snapshots the top profiles by XP into leaderboard_entries.
func (s *ProgressionService) RebuildLeaderboard() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var profiles []models.AilockProfile
		if err := tx.Order("xp DESC, created_at ASC").
			Limit(LeaderboardSize).
			Find(&profiles).Error; err != nil {
			return err
		}

		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}

		now := time.Now()
		for i, p := range profiles {
			entry := models.LeaderboardEntry{
				ID:         uuid.NewString(),
				Rank:       i + 1,
				AilockID:   p.ID,
				Name:       p.Name,
				Level:      p.Level,
				XP:         p.XP,
				ComputedAt: now,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		log.Printf("🏆 Leaderboard rebuilt: %d entries", len(profiles))
		return nil
	})
}

// GetLeaderboard returns the current snapshot in rank order.
func (s *ProgressionService) GetLeaderboard(limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}
	var entries []models.LeaderboardEntry
	err := s.DB.Order("rank ASC").Limit(limit).Find(&entries).Error
	return entries, err
}
