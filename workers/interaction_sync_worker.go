// workers/interaction_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"ailock-progression-system/models"
	"ailock-progression-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionSyncClient polls the platform for per-user activity counters
// (intents created + chat sessions). The full profile's totalInteractions is
// derived from this mirror rather than tracked by the progression service.
type InteractionSyncClient struct {
	DB         *gorm.DB
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewInteractionSyncClient(db *gorm.DB) *InteractionSyncClient {
	return &InteractionSyncClient{
		DB:         db,
		BaseURL:    envOr("PLATFORM_SERVICE_URL", "http://localhost:8600"),
		Token:      envOr("AILOCK_SERVICE_TOKEN", ""),
		HTTPClient: utils.HTTPClient,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetChangedInteractions fetches counters updated since the given time.
func (c *InteractionSyncClient) GetChangedInteractions(ctx context.Context, since time.Time) ([]models.InteractionMirror, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/interactions", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call platform service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("platform service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Interactions []models.InteractionMirror `json:"interactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode platform service response: %w", err)
	}

	return response.Interactions, nil
}

// PollInteractions keeps the interaction mirror fresh.
func PollInteractions(ctx context.Context, client *InteractionSyncClient, pollInterval time.Duration) {
	log.Println("Starting interaction polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Interaction polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			interactions, err := client.GetChangedInteractions(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling interactions: %v", err)
				continue
			}

			count := len(interactions)
			if count == 0 {
				continue
			}

			now := time.Now()
			for i := range interactions {
				interactions[i].SyncedAt = now
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"intents_created",
						"chat_sessions",
						"updated_at",
						"synced_at",
					}),
				},
			).Create(&interactions).Error; err != nil {
				log.Printf("❌ Failed to upsert %d interaction row(s): %v", count, err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			// Advance to poll start time to avoid reprocessing the same batch
			lastSyncTime = logTime
			log.Printf("✅ Upserted %d interaction row(s) into interaction_mirrors.", count)
		}
	}
}
