// handlers/progression_routes.go
package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"ailock-progression-system/middleware"
	"ailock-progression-system/models"
	"ailock-progression-system/services"
	"ailock-progression-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, achievementService *services.AchievementService) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/skills/tree", func(c *fiber.Ctx) error {
		return c.JSON(models.SkillsByBranch())
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		entries, err := progressionService.GetLeaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	// 📡 SSE stream — EventSource cannot send headers, so it carries its own auth
	app.Get("/user/ailock/stream", middleware.SSEAuthMiddleware(), progressionService.StreamXpEventsSSE)

	// 🔐 Secured routes — require user context (userID, roles)
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/ailock", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		profile, err := progressionService.GetOrCreateProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load ailock profile",
				"cause": err.Error(),
			})
		}
		return c.JSON(profile)
	})

	securedGroup.Post("/user/ailock/xp", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			EventType   string            `json:"event_type"`
			Description string            `json:"description"`
			Context     datatypes.JSONMap `json:"context"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.EventType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "event_type is required",
			})
		}

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		result, err := progressionService.GainXP(prof.ID, models.XpEventType(req.EventType), req.Context, req.Description)
		if err != nil {
			if errors.Is(err, services.ErrProfileNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "ailock profile not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	securedGroup.Post("/user/ailock/skills/upgrade", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			SkillID string `json:"skill_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.SkillID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "skill_id is required",
			})
		}

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		if err := progressionService.UpgradeSkill(prof.ID, req.SkillID); err != nil {
			switch {
			case errors.Is(err, services.ErrInsufficientSkillPoints):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":  "not enough skill points",
					"reason": "insufficient_skill_points",
				})
			case errors.Is(err, services.ErrPrerequisitesNotMet):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":  "skill prerequisites not met",
					"reason": "prerequisites_not_met",
				})
			case errors.Is(err, services.ErrSkillAtMaxLevel):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":  "skill already at max level",
					"reason": "max_level_reached",
				})
			case errors.Is(err, services.ErrUnknownSkill):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error":  "unknown skill",
					"reason": "unknown_skill",
				})
			case errors.Is(err, services.ErrProfileNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "ailock profile not found",
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "skill upgrade failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"skill_id": req.SkillID,
		})
	})

	securedGroup.Get("/user/ailock/skills", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		profile, err := progressionService.GetOrCreateProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load ailock profile",
				"cause": err.Error(),
			})
		}

		// Merge static tree with the profile's unlock state
		unlockedByID := make(map[string]models.AilockSkill, len(profile.Skills))
		unlockedIDs := make([]string, 0, len(profile.Skills))
		for _, s := range profile.Skills {
			unlockedByID[s.SkillID] = s
			unlockedIDs = append(unlockedIDs, s.SkillID)
		}

		var skills []fiber.Map
		for _, def := range models.SkillTree {
			entry := fiber.Map{
				"id":            def.ID,
				"name":          def.Name,
				"description":   def.Description,
				"branch":        def.Branch,
				"max_level":     def.MaxLevel,
				"prerequisites": def.Prerequisites,
				"current_level": 0,
				"can_unlock":    models.CanUnlockSkill(def.ID, unlockedIDs),
				"effect":        models.SkillEffect(def.ID, 0),
			}
			if owned, ok := unlockedByID[def.ID]; ok {
				entry["current_level"] = owned.CurrentLevel
				entry["effect"] = models.SkillEffect(def.ID, owned.CurrentLevel)
				entry["unlocked_at"] = owned.UnlockedAt
			}
			skills = append(skills, entry)
		}

		return c.JSON(fiber.Map{
			"skill_points": profile.SkillPoints,
			"skills":       skills,
		})
	})

	securedGroup.Get("/user/ailock/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		history, err := progressionService.GetXpHistory(prof.ID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	securedGroup.Get("/user/ailock/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		achievements, err := achievementService.ListForAilock(prof.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"achievements": achievements})
	})

	securedGroup.Put("/user/ailock/name", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Name string `json:"name"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		updated, err := progressionService.RenameAilock(prof.ID, req.Name)
		if err != nil {
			if errors.Is(err, services.ErrInvalidName) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "name must be 1-50 characters",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "rename failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"name":         updated.Name,
			"share_handle": updated.ShareHandle,
		})
	})

	securedGroup.Post("/user/ailock/avatar", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prof, err := progressionService.FindProfileByUser(userID)
		if err != nil {
			return profileLookupError(c, err)
		}

		avatarFile, err := c.FormFile("avatar")
		if err != nil || avatarFile.Size == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "avatar file is required",
			})
		}
		contentType := avatarFile.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "avatar must be an image",
			})
		}

		filename := fmt.Sprintf("%s%s", prof.ID, filepath.Ext(avatarFile.Filename))
		var avatarURL string
		if utils.R2Configured() {
			avatarURL, err = utils.UploadFileToR2(avatarFile, "avatars/"+filename)
		} else {
			// Local fallback for dev setups without R2 credentials
			err = utils.SaveFile(avatarFile, utils.GetUploadPath(filepath.Join("avatars", filename)))
			avatarURL = "/uploads/avatars/" + filename
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "avatar upload failed",
				"cause": err.Error(),
			})
		}

		if err := progressionService.SetAvatarURL(prof.ID, avatarURL); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save avatar URL",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"avatar_url": avatarURL})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID      string `json:"user_id"`
			EventType   string `json:"event_type"`
			Description string `json:"description"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.EventType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and event_type are required",
			})
		}

		prof, err := progressionService.FindProfileByUser(req.UserID)
		if err != nil {
			return profileLookupError(c, err)
		}

		result, err := progressionService.GainXP(prof.ID, models.XpEventType(req.EventType), nil, req.Description)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}

func profileLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrProfileNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ailock profile not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "DB error fetching profile",
		"cause": err.Error(),
	})
}
