package services

import "math"

// Level curve: each level requires ~20% more XP than the previous one.
// L_n → L_n+1 costs floor(BaseXPPerLevel * GrowthRate^(n-1)).
const (
	BaseXPPerLevel = 100
	LevelGrowth    = 1.2
	MaxAilockLevel = 20
)

// XpRequiredForLevel returns the XP needed to advance *from* the given level.
// Returns 0 at or above the cap — there is nothing past level 20.
func XpRequiredForLevel(level int) int64 {
	if level >= MaxAilockLevel {
		return 0
	}
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(BaseXPPerLevel * math.Pow(LevelGrowth, float64(level-1))))
}

// TotalXpForLevel returns the cumulative XP required to reach the given level.
func TotalXpForLevel(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += XpRequiredForLevel(l)
	}
	return total
}

// LevelInfo describes where a given XP total sits on the curve.
type LevelInfo struct {
	Level                int     `json:"level"`
	ProgressXp           int64   `json:"progress_xp"`
	XpNeededForNextLevel int64   `json:"xp_needed_for_next_level"`
	XpToNextLevel        int64   `json:"xp_to_next_level"`
	ProgressPercentage   float64 `json:"progress_percentage"`
}

// ComputeLevelInfo converts total accumulated XP into level + progress.
// Iterative scan — at most 20 steps, no closed form needed.
func ComputeLevelInfo(currentXp int64) LevelInfo {
	if currentXp < 0 {
		currentXp = 0
	}

	level := 1
	var threshold int64
	for level < MaxAilockLevel {
		next := threshold + XpRequiredForLevel(level)
		if currentXp < next {
			break
		}
		threshold = next
		level++
	}

	info := LevelInfo{
		Level:                level,
		ProgressXp:           currentXp - threshold,
		XpNeededForNextLevel: XpRequiredForLevel(level),
	}

	if info.XpNeededForNextLevel == 0 {
		// Max level reached
		info.ProgressPercentage = 100
		return info
	}

	info.XpToNextLevel = info.XpNeededForNextLevel - info.ProgressXp
	if info.XpToNextLevel < 0 {
		info.XpToNextLevel = 0
	}
	info.ProgressPercentage = float64(info.ProgressXp) / float64(info.XpNeededForNextLevel) * 100
	if info.ProgressPercentage > 100 {
		info.ProgressPercentage = 100
	}
	return info
}

// AvatarStageThresholds: stage → min level
var AvatarStageThresholds = []struct {
	MinLevel int
	Stage    string
}{
	{50, "singularity"},
	{30, "master"},
	{20, "strategist"},
	{10, "analyst"},
	{1, "robot"},
}

// AvatarStage maps a level onto its visual evolution tier.
func AvatarStage(level int) string {
	for _, t := range AvatarStageThresholds {
		if level >= t.MinLevel {
			return t.Stage
		}
	}
	return "robot"
}
