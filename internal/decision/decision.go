package decision

import "call-intelligence/internal/signals"

// Decision is the audited result of Evaluate. Values are write-once: nothing
// downstream should modify a Decision after it is returned.
type Decision struct {
	FinalAction   string `json:"final_action"`
	PriorityScore int    `json:"priority_score"`
	PriorityLevel string `json:"priority_level"`

	RiskLevel        Level `json:"risk_level"`
	OpportunityLevel Level `json:"opportunity_level"`

	EscalationRequired bool `json:"escalation_required"`
	UrgentFlag         bool `json:"urgent_flag"`
	RevenueOpportunity bool `json:"revenue_opportunity"`

	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`

	// RulesApplied lists one entry per fired rule, in firing order. Never nil.
	RulesApplied []string `json:"rules_applied"`

	Intent         signals.Intent `json:"intent"`
	SentimentLabel signals.Label  `json:"sentiment_label"`
}

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	ActionEscalate  = "Escalate to Senior Manager immediately"
	ActionRetention = "Route to retention specialist with compensation authority"
	ActionFastTrack = "Fast-track demo scheduling with senior sales rep"
	ActionReview    = "Review call manually"
)

const (
	DefaultPriority = 50
	ChurnFloor      = 90
	UrgentAbove     = 85
)

// Priority level buckets.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityLevel buckets a priority score.
func PriorityLevel(score int) string {
	switch {
	case score > UrgentAbove:
		return PriorityUrgent
	case score >= 70:
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
