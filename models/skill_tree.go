package models

// SkillBranch groups skills thematically.
type SkillBranch string

const (
	BranchResearch      SkillBranch = "research"
	BranchCollaboration SkillBranch = "collaboration"
	BranchEfficiency    SkillBranch = "efficiency"
	BranchConvenience   SkillBranch = "convenience"
)

// SkillDefinition is a static skill-tree node. Prerequisites may reference any
// number of other skill ids (the tree is a DAG; the shipped data is four
// linear chains of three).
type SkillDefinition struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Branch        SkillBranch `json:"branch"`
	MaxLevel      int         `json:"max_level"`
	Prerequisites []string    `json:"prerequisites"`
	Effects       []string    `json:"effects"` // index 0 = level 1
}

// SkillTree: flat registry keyed by skill id. A flat map keeps prerequisite
// validation a set-membership check instead of a graph walk.
var SkillTree = map[string]SkillDefinition{
	// Research branch
	"semantic_search": {
		ID:          "semantic_search",
		Name:        "Semantic Search",
		Description: "Find intents by meaning, not just keywords",
		Branch:      BranchResearch,
		MaxLevel:    3,
		Effects: []string{
			"Basic semantic matching over intents",
			"Cross-language matching and synonym expansion",
			"Full context-aware search with ranked relevance",
		},
	},
	"deep_research": {
		ID:            "deep_research",
		Name:          "Deep Research",
		Description:   "Let your Ailock dig into a topic before you ask",
		Branch:        BranchResearch,
		MaxLevel:      3,
		Prerequisites: []string{"semantic_search"},
		Effects: []string{
			"Single-source background research",
			"Multi-source synthesis with citations",
			"Autonomous research briefs on new intents",
		},
	},
	"market_insight": {
		ID:            "market_insight",
		Name:          "Market Insight",
		Description:   "Spot trends across the whole intent marketplace",
		Branch:        BranchResearch,
		MaxLevel:      3,
		Prerequisites: []string{"deep_research"},
		Effects: []string{
			"Weekly trend summary",
			"Demand forecasts for your skills",
			"Real-time opportunity alerts",
		},
	},

	// Collaboration branch
	"smart_matching": {
		ID:          "smart_matching",
		Name:        "Smart Matching",
		Description: "Better intent-to-collaborator pairing",
		Branch:      BranchCollaboration,
		MaxLevel:    3,
		Effects: []string{
			"Skill-based match scoring",
			"Availability and timezone aware matching",
			"Proactive introductions to likely partners",
		},
	},
	"team_builder": {
		ID:            "team_builder",
		Name:          "Team Builder",
		Description:   "Assemble groups around bigger intents",
		Branch:        BranchCollaboration,
		MaxLevel:      3,
		Prerequisites: []string{"smart_matching"},
		Effects: []string{
			"Suggest a second collaborator",
			"Draft full team compositions",
			"Auto-balance teams by skill coverage",
		},
	},
	"network_effect": {
		ID:            "network_effect",
		Name:          "Network Effect",
		Description:   "Grow reach through second-degree connections",
		Branch:        BranchCollaboration,
		MaxLevel:      3,
		Prerequisites: []string{"team_builder"},
		Effects: []string{
			"Surface friends-of-friends matches",
			"Warm-introduction drafting",
			"Community-wide collaboration graph insights",
		},
	},

	// Efficiency branch
	"quick_draft": {
		ID:          "quick_draft",
		Name:        "Quick Draft",
		Description: "Generate intent drafts from a one-line idea",
		Branch:      BranchEfficiency,
		MaxLevel:    3,
		Effects: []string{
			"Title and summary drafting",
			"Full structured intent drafts",
			"Drafts tuned to your past successful intents",
		},
	},
	"auto_summary": {
		ID:            "auto_summary",
		Name:          "Auto Summary",
		Description:   "Condense long chats and documents",
		Branch:        BranchEfficiency,
		MaxLevel:      3,
		Prerequisites: []string{"quick_draft"},
		Effects: []string{
			"Chat thread summaries",
			"Document and link summaries",
			"Daily digest of everything you missed",
		},
	},
	"workflow_boost": {
		ID:            "workflow_boost",
		Name:          "Workflow Boost",
		Description:   "Chain Ailock actions into one-click flows",
		Branch:        BranchEfficiency,
		MaxLevel:      3,
		Prerequisites: []string{"auto_summary"},
		Effects: []string{
			"Two-step action chains",
			"Custom saved workflows",
			"Fully autonomous routine handling",
		},
	},

	// Convenience branch
	"voice_commands": {
		ID:          "voice_commands",
		Name:        "Voice Commands",
		Description: "Talk to your Ailock instead of typing",
		Branch:      BranchConvenience,
		MaxLevel:    3,
		Effects: []string{
			"Basic voice-to-intent commands",
			"Conversational voice sessions",
			"Hands-free multi-turn task control",
		},
	},
	"smart_notifications": {
		ID:            "smart_notifications",
		Name:          "Smart Notifications",
		Description:   "Only get pinged when it actually matters",
		Branch:        BranchConvenience,
		MaxLevel:      3,
		Prerequisites: []string{"voice_commands"},
		Effects: []string{
			"Priority filtering of notifications",
			"Context-aware delivery timing",
			"Predictive heads-up before deadlines",
		},
	},
	"daily_digest": {
		ID:            "daily_digest",
		Name:          "Daily Digest",
		Description:   "A personalized morning briefing",
		Branch:        BranchConvenience,
		MaxLevel:      3,
		Prerequisites: []string{"smart_notifications"},
		Effects: []string{
			"Morning summary of new matches",
			"Digest with suggested next actions",
			"Adaptive briefing shaped by your habits",
		},
	},
}

// CanUnlockSkill reports whether every prerequisite of skillID is already
// unlocked. Unknown skill ids are never unlockable.
func CanUnlockSkill(skillID string, unlockedSkillIDs []string) bool {
	def, ok := SkillTree[skillID]
	if !ok {
		return false
	}
	for _, prereq := range def.Prerequisites {
		found := false
		for _, unlocked := range unlockedSkillIDs {
			if unlocked == prereq {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SkillEffect returns the effect description at the given level, falling back
// to the highest defined level below it.
func SkillEffect(skillID string, level int) string {
	def, ok := SkillTree[skillID]
	if !ok || level < 1 {
		return "Not unlocked"
	}
	if level > len(def.Effects) {
		level = len(def.Effects)
	}
	return def.Effects[level-1]
}

// SkillsByBranch groups the static tree for the skill-tree endpoint.
func SkillsByBranch() map[SkillBranch][]SkillDefinition {
	out := make(map[SkillBranch][]SkillDefinition)
	for _, def := range SkillTree {
		out[def.Branch] = append(out[def.Branch], def)
	}
	return out
}
