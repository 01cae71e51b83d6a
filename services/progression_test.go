package services

import (
	"errors"
	"path/filepath"
	"testing"

	"ailock-progression-system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ailock_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.AilockProfile{},
		&models.AilockSkill{},
		&models.XpEvent{},
		&models.AilockAchievement{},
		&models.MirroredUser{},
		&models.InteractionMirror{},
		&models.LeaderboardEntry{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestGetOrCreateProfileDefaults(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))

	profile, err := svc.GetOrCreateProfile("u1")
	if err != nil {
		t.Fatalf("GetOrCreateProfile returned error: %v", err)
	}
	if profile.Name != "Ailock" {
		t.Errorf("default name = %q, want Ailock", profile.Name)
	}
	if profile.Level != 1 || profile.XP != 0 || profile.SkillPoints != 1 {
		t.Errorf("unexpected defaults: level=%d xp=%d points=%d", profile.Level, profile.XP, profile.SkillPoints)
	}
	if profile.Velocity != 10 || profile.Collaboration != 10 {
		t.Errorf("characteristics not seeded: %+v", profile.AilockProfile)
	}
	if profile.AvatarStage != "robot" {
		t.Errorf("avatar stage = %q, want robot", profile.AvatarStage)
	}
	if len(profile.Skills) != 0 || len(profile.Achievements) != 0 || len(profile.RecentXpHistory) != 0 {
		t.Errorf("fresh profile should have no skills/achievements/history")
	}

	// Second call must not create a second row
	again, err := svc.GetOrCreateProfile("u1")
	if err != nil {
		t.Fatalf("second GetOrCreateProfile returned error: %v", err)
	}
	if again.ID != profile.ID {
		t.Fatalf("get-or-create is not idempotent: %s vs %s", again.ID, profile.ID)
	}
	var count int64
	svc.DB.Model(&models.AilockProfile{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 profile row, got %d", count)
	}
}

func TestGetOrCreateProfileDerivesInteractions(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))

	profile, _ := svc.GetOrCreateProfile("u1")
	if profile.TotalInteractions != 0 {
		t.Fatalf("expected 0 interactions without a mirror row, got %d", profile.TotalInteractions)
	}

	svc.DB.Create(&models.InteractionMirror{UserID: "u1", IntentsCreated: 3, ChatSessions: 7})
	profile, err := svc.GetOrCreateProfile("u1")
	if err != nil {
		t.Fatalf("GetOrCreateProfile returned error: %v", err)
	}
	if profile.TotalInteractions != 10 {
		t.Fatalf("total interactions = %d, want 10", profile.TotalInteractions)
	}
}

func TestGainXPSingleGrant(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	result, err := svc.GainXP(profile.ID, models.EventIntentCreated, datatypes.JSONMap{"intent_id": "i-1"}, "")
	if err != nil {
		t.Fatalf("GainXP returned error: %v", err)
	}
	if result.XPGained != 25 || result.NewXP != 25 {
		t.Fatalf("unexpected grant: %+v", result)
	}
	if result.LeveledUp || result.NewLevel != 1 || result.SkillPointsGained != 0 {
		t.Fatalf("25 XP must not level up from 0: %+v", result)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.XP != 25 || prof.Level != 1 || prof.SkillPoints != 1 {
		t.Fatalf("profile not persisted correctly: xp=%d level=%d points=%d", prof.XP, prof.Level, prof.SkillPoints)
	}
	if prof.LastActiveAt == nil {
		t.Error("last_active_at not set")
	}

	var event models.XpEvent
	if err := svc.DB.First(&event, "ailock_id = ?", profile.ID).Error; err != nil {
		t.Fatalf("expected a history row: %v", err)
	}
	if event.EventType != "intent_created" || event.XPGained != 25 {
		t.Fatalf("unexpected event row: %+v", event)
	}
	if event.Description != "Intent Created (+25 XP)" {
		t.Errorf("description = %q", event.Description)
	}
}

func TestGainXPUnknownEventIsNoOp(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	result, err := svc.GainXP(profile.ID, "intent_deleted", nil, "")
	if err != nil {
		t.Fatalf("GainXP returned error: %v", err)
	}
	if !result.Success || result.XPGained != 0 || result.LeveledUp {
		t.Fatalf("unknown event should be a successful no-op: %+v", result)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.XP != 0 || prof.Level != 1 || prof.SkillPoints != 1 {
		t.Fatalf("no-op grant mutated the profile: %+v", prof)
	}
	var events int64
	svc.DB.Model(&models.XpEvent{}).Count(&events)
	if events != 0 {
		t.Fatalf("no-op grant wrote %d history rows", events)
	}
}

func TestGainXPMissingProfile(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	_, err := svc.GainXP("nope", models.EventChatMessageSent, nil, "")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestGainXPMultiLevelJumps(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	// Four project completions: 4 × 200 = 800 XP
	var last *GainResult
	totalPointsGained := 0
	for i := 0; i < 4; i++ {
		res, err := svc.GainXP(profile.ID, models.EventProjectCompleted, nil, "")
		if err != nil {
			t.Fatalf("grant %d failed: %v", i+1, err)
		}
		totalPointsGained += res.SkillPointsGained
		last = res
	}

	wantLevel := ComputeLevelInfo(800).Level
	if last.NewXP != 800 || last.NewLevel != wantLevel {
		t.Fatalf("after 800 XP: got level %d, want %d (%+v)", last.NewLevel, wantLevel, last)
	}
	if totalPointsGained != wantLevel-1 {
		t.Fatalf("skill points gained = %d, want %d (one per level crossed)", totalPointsGained, wantLevel-1)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.XP != 800 || prof.Level != wantLevel {
		t.Fatalf("persisted state: xp=%d level=%d", prof.XP, prof.Level)
	}
	if prof.SkillPoints != 1+totalPointsGained {
		t.Fatalf("skill points = %d, want %d", prof.SkillPoints, 1+totalPointsGained)
	}
	if prof.LastLevelUpAt == nil {
		t.Error("last_level_up_at not set after leveling")
	}

	var events int64
	svc.DB.Model(&models.XpEvent{}).Where("ailock_id = ?", profile.ID).Count(&events)
	if events != 4 {
		t.Fatalf("expected 4 history rows, got %d", events)
	}
}

func TestUpgradeSkillUnlockAndSpend(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	// semantic_search has no prerequisites; the fresh point covers it
	if err := svc.UpgradeSkill(profile.ID, "semantic_search"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	var skill models.AilockSkill
	if err := svc.DB.First(&skill, "ailock_id = ? AND skill_id = ?", profile.ID, "semantic_search").Error; err != nil {
		t.Fatalf("skill row missing: %v", err)
	}
	if skill.CurrentLevel != 1 || skill.Branch != "research" || skill.SkillName != "Semantic Search" {
		t.Fatalf("unexpected skill row: %+v", skill)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.SkillPoints != 0 {
		t.Fatalf("skill points = %d, want 0", prof.SkillPoints)
	}

	// Second spend with an empty balance must fail without mutation
	err := svc.UpgradeSkill(profile.ID, "semantic_search")
	if !errors.Is(err, ErrInsufficientSkillPoints) {
		t.Fatalf("expected ErrInsufficientSkillPoints, got %v", err)
	}
	svc.DB.First(&skill, "ailock_id = ? AND skill_id = ?", profile.ID, "semantic_search")
	if skill.CurrentLevel != 1 {
		t.Fatalf("failed upgrade mutated the skill: level %d", skill.CurrentLevel)
	}
}

func TestUpgradeSkillPrerequisiteGate(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	err := svc.UpgradeSkill(profile.ID, "deep_research")
	if !errors.Is(err, ErrPrerequisitesNotMet) {
		t.Fatalf("expected ErrPrerequisitesNotMet, got %v", err)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.SkillPoints != 1 {
		t.Fatalf("failed upgrade spent a point: %d", prof.SkillPoints)
	}
	var count int64
	svc.DB.Model(&models.AilockSkill{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed upgrade created %d skill rows", count)
	}
}

func TestUpgradeSkillMaxLevelCap(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	// Bank enough points: level 1→6 yields 5 plus the starting one
	for i := 0; i < 4; i++ {
		if _, err := svc.GainXP(profile.ID, models.EventProjectCompleted, nil, ""); err != nil {
			t.Fatalf("grant failed: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		if err := svc.UpgradeSkill(profile.ID, "semantic_search"); err != nil {
			t.Fatalf("upgrade %d failed: %v", i+1, err)
		}
	}

	err := svc.UpgradeSkill(profile.ID, "semantic_search")
	if !errors.Is(err, ErrSkillAtMaxLevel) {
		t.Fatalf("expected ErrSkillAtMaxLevel, got %v", err)
	}

	var skill models.AilockSkill
	svc.DB.First(&skill, "ailock_id = ? AND skill_id = ?", profile.ID, "semantic_search")
	if skill.CurrentLevel != 3 {
		t.Fatalf("skill level = %d, want 3", skill.CurrentLevel)
	}

	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.SkillPoints != 3 {
		t.Fatalf("capped upgrade spent a point: %d points left, want 3", prof.SkillPoints)
	}
}

func TestGainXPDerivesLevelFromStoredXP(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	// Another writer already committed an XP bump but its level write has not
	// landed yet. The grant must derive level and points from the stored
	// balance, never from a snapshot taken before its own increment.
	svc.DB.Model(&models.AilockProfile{}).
		Where("id = ?", profile.ID).
		Update("xp", gorm.Expr("xp + ?", 90))

	res, err := svc.GainXP(profile.ID, models.EventIntentCreated, nil, "")
	if err != nil {
		t.Fatalf("GainXP returned error: %v", err)
	}
	if res.NewXP != 115 {
		t.Fatalf("NewXP = %d, want 115 (stored balance + grant)", res.NewXP)
	}
	if !res.LeveledUp || res.NewLevel != 2 || res.SkillPointsGained != 1 {
		t.Fatalf("crossing 100 XP must award exactly one point: %+v", res)
	}

	// Next grant crosses the 220 threshold only
	res, err = svc.GainXP(profile.ID, models.EventProjectCompleted, nil, "")
	if err != nil {
		t.Fatalf("GainXP returned error: %v", err)
	}
	if res.NewXP != 315 || res.NewLevel != 3 || res.SkillPointsGained != 1 {
		t.Fatalf("315 XP should be level 3 with one new point: %+v", res)
	}

	// Points awarded must equal level boundaries crossed, exactly once each
	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.Level != 3 || prof.SkillPoints != 1+(prof.Level-1) {
		t.Fatalf("level=%d points=%d, want points = 1 + levels gained", prof.Level, prof.SkillPoints)
	}
}

func TestUpgradeSkillCapUsesStoredLevel(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	if err := svc.UpgradeSkill(profile.ID, "semantic_search"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	// Bank a point and push the stored level to the cap out of band, as a
	// racing upgrade would. The conditional increment must refuse to go past
	// MaxLevel and leave the point unspent.
	svc.DB.Model(&models.AilockProfile{}).
		Where("id = ?", profile.ID).
		Update("skill_points", 1)
	svc.DB.Model(&models.AilockSkill{}).
		Where("ailock_id = ? AND skill_id = ?", profile.ID, "semantic_search").
		Update("current_level", models.SkillTree["semantic_search"].MaxLevel)

	err := svc.UpgradeSkill(profile.ID, "semantic_search")
	if !errors.Is(err, ErrSkillAtMaxLevel) {
		t.Fatalf("expected ErrSkillAtMaxLevel, got %v", err)
	}

	var skill models.AilockSkill
	svc.DB.First(&skill, "ailock_id = ? AND skill_id = ?", profile.ID, "semantic_search")
	if skill.CurrentLevel != models.SkillTree["semantic_search"].MaxLevel {
		t.Fatalf("capped skill incremented to %d", skill.CurrentLevel)
	}
	var prof models.AilockProfile
	svc.DB.First(&prof, "id = ?", profile.ID)
	if prof.SkillPoints != 1 {
		t.Fatalf("capped upgrade spent a point: %d left, want 1", prof.SkillPoints)
	}
}

func TestUpgradeSkillUnknownSkill(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	if err := svc.UpgradeSkill(profile.ID, "mind_reading"); !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("expected ErrUnknownSkill, got %v", err)
	}
}

func TestRenameAilock(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))
	profile, _ := svc.GetOrCreateProfile("u1")

	updated, err := svc.RenameAilock(profile.ID, "Café Nova 3000")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if updated.Name != "Café Nova 3000" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.ShareHandle != "cafe-nova-3000" {
		t.Errorf("share handle = %q, want cafe-nova-3000", updated.ShareHandle)
	}

	if _, err := svc.RenameAilock(profile.ID, "   "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank name should fail, got %v", err)
	}
}

func TestRebuildLeaderboard(t *testing.T) {
	svc := NewProgressionService(newTestDB(t))

	p1, _ := svc.GetOrCreateProfile("u1")
	p2, _ := svc.GetOrCreateProfile("u2")
	if _, err := svc.GainXP(p2.ID, models.EventProjectCompleted, nil, ""); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if err := svc.RebuildLeaderboard(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	entries, err := svc.GetLeaderboard(10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].AilockID != p2.ID || entries[0].Rank != 1 {
		t.Fatalf("rank 1 should be the 200 XP profile: %+v", entries[0])
	}
	if entries[1].AilockID != p1.ID || entries[1].Rank != 2 {
		t.Fatalf("rank 2 mismatch: %+v", entries[1])
	}

	// Rebuild replaces rather than appends
	if err := svc.RebuildLeaderboard(); err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	var count int64
	svc.DB.Model(&models.LeaderboardEntry{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 entries after rebuild, got %d", count)
	}
}
