package reporting

import "time"

// DashboardMetrics is the workspace-level KPI snapshot.
type DashboardMetrics struct {
	WorkspaceID string `json:"workspace_id"`

	TotalCalls           int `json:"total_calls"`
	HighRiskCalls        int `json:"high_risk_calls"`
	RevenueOpportunities int `json:"revenue_opportunities"`
	EscalatedCalls       int `json:"escalated_calls"`
	UrgentCalls          int `json:"urgent_calls"`

	// Averages are rounded to two decimals.
	AvgPriorityScore   float64 `json:"avg_priority_score"`
	AvgConfidenceScore float64 `json:"avg_confidence_score"`

	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	StatusDistribution    map[string]int `json:"status_distribution"`
	IntentDistribution    map[string]int `json:"intent_distribution"`

	TopTopics []Topic `json:"top_topics"`

	LastUpdated time.Time `json:"last_updated"`
}

// Topic counts keyword mentions in one category across calls.
type Topic struct {
	Topic      string  `json:"topic"`
	Mentions   int     `json:"mentions"`
	Percentage float64 `json:"percentage"`
}
