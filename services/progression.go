package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ailock-progression-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// XpRewards is the authoritative reward table. Event types missing from it
// grant nothing; the grant becomes a no-op instead of an error.
var XpRewards = map[models.XpEventType]int64{
	models.EventChatMessageSent:       5,
	models.EventVoiceMessageSent:      10,
	models.EventIntentCreated:         25,
	models.EventSkillUsedSuccessfully: 15,
	models.EventAchievementUnlocked:   50,
	models.EventProjectStarted:        30,
	models.EventProjectCompleted:      200,
	models.EventFirstLoginToday:       10,
}

// RecentHistoryLimit: XP events embedded in the full profile response.
const RecentHistoryLimit = 10

// Typed failures — handlers map these onto stable HTTP outcomes instead of
// leaking persistence errors.
var (
	ErrProfileNotFound         = errors.New("ailock profile not found")
	ErrInsufficientSkillPoints = errors.New("not enough skill points")
	ErrPrerequisitesNotMet     = errors.New("skill prerequisites not met")
	ErrUnknownSkill            = errors.New("unknown skill")
	ErrSkillAtMaxLevel         = errors.New("skill already at max level")
	ErrInvalidName             = errors.New("invalid ailock name")
)

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// FullProfile is the enriched profile the dashboard renders from.
type FullProfile struct {
	models.AilockProfile
	LevelInfo         LevelInfo                  `json:"level_info"`
	AvatarStage       string                     `json:"avatar_stage"`
	Skills            []models.AilockSkill       `json:"skills"`
	Achievements      []models.AilockAchievement `json:"achievements"`
	RecentXpHistory   []models.XpEvent           `json:"recent_xp_history"`
	TotalInteractions int64                      `json:"total_interactions"`
}

// GainResult reports the outcome of a single XP grant.
type GainResult struct {
	Success           bool                       `json:"success"`
	LeveledUp         bool                       `json:"leveled_up"`
	XPGained          int64                      `json:"xp_gained"`
	NewXP             int64                      `json:"new_xp"`
	NewLevel          int                        `json:"new_level"`
	SkillPointsGained int                        `json:"skill_points_gained"`
	NewAchievements   []models.AilockAchievement `json:"new_achievements,omitempty"`
}

// GetOrCreateProfile returns the user's Ailock, creating it on first access.
func (s *ProgressionService) GetOrCreateProfile(userID string) (*FullProfile, error) {
	var prof models.AilockProfile
	err := s.DB.Where("user_id = ?", userID).First(&prof).Error
	if err == gorm.ErrRecordNotFound {
		prof = models.AilockProfile{
			ID:            uuid.NewString(),
			UserID:        userID,
			Name:          "Ailock",
			Level:         1,
			XP:            0,
			SkillPoints:   1,
			Velocity:      10,
			Insight:       10,
			Efficiency:    10,
			Creativity:    10,
			Collaboration: 10,
		}
		if err := s.DB.Create(&prof).Error; err != nil {
			return nil, err
		}
		log.Printf("🐣 Ailock created for user %s (id=%s)", userID, prof.ID)
	} else if err != nil {
		return nil, err
	}

	return s.assembleFullProfile(&prof)
}

func (s *ProgressionService) assembleFullProfile(prof *models.AilockProfile) (*FullProfile, error) {
	full := &FullProfile{
		AilockProfile: *prof,
		LevelInfo:     ComputeLevelInfo(prof.XP),
		AvatarStage:   AvatarStage(prof.Level),
	}

	if err := s.DB.Where("ailock_id = ?", prof.ID).
		Order("unlocked_at ASC").
		Find(&full.Skills).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Where("ailock_id = ?", prof.ID).
		Order("unlocked_at DESC").
		Find(&full.Achievements).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Where("ailock_id = ?", prof.ID).
		Order("created_at DESC").
		Limit(RecentHistoryLimit).
		Find(&full.RecentXpHistory).Error; err != nil {
		return nil, err
	}

	// Derived interaction count from the synced mirror; absence is not an
	// error — the mirror lags behind brand-new users.
	var mirror models.InteractionMirror
	if err := s.DB.Where("user_id = ?", prof.UserID).First(&mirror).Error; err == nil {
		full.TotalInteractions = mirror.IntentsCreated + mirror.ChatSessions
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return full, nil
}

// FindProfileByUser looks the profile up without creating one.
func (s *ProgressionService) FindProfileByUser(userID string) (*models.AilockProfile, error) {
	var prof models.AilockProfile
	if err := s.DB.Where("user_id = ?", userID).First(&prof).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &prof, nil
}

// GainXP applies the reward for eventType to the Ailock: XP, level recompute,
// skill-point accrual and an append-only history row, all in one transaction.
// A single large grant can cross several level boundaries; one skill point is
// awarded per level gained.
func (s *ProgressionService) GainXP(ailockID string, eventType models.XpEventType, context datatypes.JSONMap, description string) (*GainResult, error) {
	xpGained := XpRewards[eventType]
	if xpGained <= 0 {
		// Unknown or zero-value event: nothing to grant, nothing to persist.
		return &GainResult{Success: true}, nil
	}

	result := &GainResult{Success: true, XPGained: xpGained}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// The increment goes first: it takes the row lock, so concurrent
		// grants serialize here and the read below always observes the
		// post-increment balance. Level and skill points are then derived
		// from the stored value, never from a pre-read snapshot.
		res := tx.Model(&models.AilockProfile{}).
			Where("id = ?", ailockID).
			Updates(map[string]interface{}{
				"xp":             gorm.Expr("xp + ?", xpGained),
				"last_active_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProfileNotFound
		}

		var prof models.AilockProfile
		if err := tx.Where("id = ?", ailockID).First(&prof).Error; err != nil {
			return err
		}

		oldInfo := ComputeLevelInfo(prof.XP - xpGained)
		newInfo := ComputeLevelInfo(prof.XP)

		result.NewXP = prof.XP
		result.NewLevel = newInfo.Level

		updates := map[string]interface{}{"level": newInfo.Level}
		if newInfo.Level > oldInfo.Level {
			result.LeveledUp = true
			result.SkillPointsGained = newInfo.Level - oldInfo.Level
			updates["skill_points"] = gorm.Expr("skill_points + ?", result.SkillPointsGained)
			updates["last_level_up_at"] = now
		}
		if err := tx.Model(&prof).Updates(updates).Error; err != nil {
			return err
		}

		if description == "" {
			description = fmt.Sprintf("%s (+%d XP)", humanizeEventType(eventType), xpGained)
		}
		event := models.XpEvent{
			ID:          uuid.NewString(),
			AilockID:    prof.ID,
			EventType:   string(eventType),
			XPGained:    xpGained,
			Description: description,
			Context:     context,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	// Achievements are best-effort decoration — an unlock failure must never
	// fail the grant itself.
	achSvc := NewAchievementService(s.DB)
	unlocked, achErr := achSvc.CheckAndUnlock(ailockID, eventType, result.NewXP, result.NewLevel)
	if achErr != nil {
		log.Printf("⚠️ Achievement check failed for ailock %s: %v", ailockID, achErr)
	} else {
		result.NewAchievements = unlocked
	}

	if result.LeveledUp {
		log.Printf("🎮 Level up: ailock=%s → XP=%d, Lvl=%d (+%d skill point(s), event: %s)",
			ailockID, result.NewXP, result.NewLevel, result.SkillPointsGained, eventType)
	}

	return result, nil
}

// UpgradeSkill spends one skill point to unlock a skill at level 1 or raise an
// already-unlocked one, validating prerequisites and the per-skill level cap.
// Fails without mutation; the point decrement is a conditional update so two
// concurrent spends cannot overdraw the balance.
func (s *ProgressionService) UpgradeSkill(ailockID, skillID string) error {
	def, ok := models.SkillTree[skillID]
	if !ok {
		return ErrUnknownSkill
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var prof models.AilockProfile
		if err := tx.Where("id = ?", ailockID).First(&prof).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrProfileNotFound
			}
			return err
		}
		if prof.SkillPoints < 1 {
			return ErrInsufficientSkillPoints
		}

		var owned []models.AilockSkill
		if err := tx.Where("ailock_id = ?", ailockID).Find(&owned).Error; err != nil {
			return err
		}
		unlockedIDs := make([]string, 0, len(owned))
		var current *models.AilockSkill
		for i := range owned {
			unlockedIDs = append(unlockedIDs, owned[i].SkillID)
			if owned[i].SkillID == skillID {
				current = &owned[i]
			}
		}

		if !models.CanUnlockSkill(skillID, unlockedIDs) {
			return ErrPrerequisitesNotMet
		}

		if current == nil {
			skill := models.AilockSkill{
				ID:           uuid.NewString(),
				AilockID:     ailockID,
				SkillID:      skillID,
				SkillName:    def.Name,
				Branch:       string(def.Branch),
				CurrentLevel: 1,
			}
			if err := tx.Create(&skill).Error; err != nil {
				return err
			}
		} else {
			// Conditional increment: the cap check and the bump happen in one
			// statement, so two concurrent upgrades cannot both pass a stale
			// snapshot check and push the skill past MaxLevel.
			res := tx.Model(&models.AilockSkill{}).
				Where("id = ? AND current_level < ?", current.ID, def.MaxLevel).
				Update("current_level", gorm.Expr("current_level + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrSkillAtMaxLevel
			}
		}

		res := tx.Model(&models.AilockProfile{}).
			Where("id = ? AND skill_points >= 1", ailockID).
			Update("skill_points", gorm.Expr("skill_points - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Balance raced to zero since the read above; roll everything back.
			return ErrInsufficientSkillPoints
		}

		log.Printf("🧠 Skill upgraded: ailock=%s skill=%s", ailockID, skillID)
		return nil
	})
}

// RenameAilock updates the display name and derives a URL-safe share handle.
func (s *ProgressionService) RenameAilock(ailockID, name string) (*models.AilockProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return nil, ErrInvalidName
	}

	var prof models.AilockProfile
	if err := s.DB.Where("id = ?", ailockID).First(&prof).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	prof.Name = name
	prof.ShareHandle = slug.Make(name)
	if err := s.DB.Save(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}

// SetAvatarURL records the uploaded avatar's CDN URL on the profile.
func (s *ProgressionService) SetAvatarURL(ailockID, url string) error {
	res := s.DB.Model(&models.AilockProfile{}).
		Where("id = ?", ailockID).
		Update("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// GetXpHistory returns paginated XP events, newest first.
func (s *ProgressionService) GetXpHistory(ailockID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	if err := s.DB.Model(&models.XpEvent{}).
		Where("ailock_id = ?", ailockID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var events []models.XpEvent
	if err := s.DB.Where("ailock_id = ?", ailockID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"events":      events,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": totalPages,
	}, nil
}

var eventTitleCaser = cases.Title(language.English)

func humanizeEventType(eventType models.XpEventType) string {
	return eventTitleCaser.String(strings.ReplaceAll(string(eventType), "_", " "))
}
