package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ailock-progression-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamXpEventsSSE streams the authenticated user's new XP events in real
// time so the dashboard can animate XP gains and level-ups without polling.
func (s *ProgressionService) StreamXpEventsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	prof, err := s.FindProfileByUser(userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "ailock profile not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "DB error resolving profile",
			"cause": err.Error(),
		})
	}
	ailockID := prof.ID

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor at the newest existing event
		var latest models.XpEvent
		if err := s.DB.
			Where("ailock_id = ?", ailockID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for ailock %s: %v", ailockID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newEvents []models.XpEvent

				err := s.DB.
					Where("ailock_id = ?", ailockID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&newEvents).Error

				if err != nil {
					log.Printf("SSE query error for ailock %s: %v", ailockID, err)
					continue
				}

				if len(newEvents) == 0 {
					continue
				}

				lastMaxCreatedAt = newEvents[len(newEvents)-1].CreatedAt

				for _, ev := range newEvents {
					payload, _ := json.Marshal(ev)
					fmt.Fprintf(w, "event: xp\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
