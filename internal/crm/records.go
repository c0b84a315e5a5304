package crm

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"call-intelligence/internal/decision"
	"call-intelligence/internal/signals"
)

// Action names a CRM operation requested by Sync.
type Action string

const (
	ActionCreateLead        Action = "create_lead"
	ActionCreateTask        Action = "create_task"
	ActionLogActivity       Action = "log_activity"
	ActionUpdateOpportunity Action = "update_opportunity"
)

// DefaultActions are run when Sync is given none.
var DefaultActions = []Action{ActionCreateLead, ActionCreateTask, ActionLogActivity}

const source = "Call Intelligence Platform"

type Lead struct {
	LeadID            string         `json:"lead_id"`
	CustomerName      string         `json:"customer_name"`
	Organization      string         `json:"organization"`
	Source            string         `json:"source"`
	Priority          string         `json:"priority"`
	OpportunityLevel  decision.Level `json:"opportunity_level"`
	RiskLevel         decision.Level `json:"risk_level"`
	CallSummary       string         `json:"call_summary"`
	RecommendedAction string         `json:"recommended_action"`
	AssignedTo        string         `json:"assigned_to"`
	SentimentScore    float64        `json:"sentiment_score"`
	CallID            string         `json:"call_id"`
	CreatedAt         time.Time      `json:"created_at"`
}

type Opportunity struct {
	OpportunityID string    `json:"opportunity_id"`
	Stage         string    `json:"stage"`
	Value         int       `json:"value"`
	Probability   int       `json:"probability"`
	NextAction    string    `json:"next_action"`
	Priority      string    `json:"priority"`
	LastContact   time.Time `json:"last_contact"`
	CallID        string    `json:"call_id"`
}

type Task struct {
	TaskID     string    `json:"task_id"`
	Type       string    `json:"type"`
	Subject    string    `json:"subject"`
	Priority   string    `json:"priority"`
	AssignedTo string    `json:"assigned_to"`
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
	RelatedTo  string    `json:"related_to"`
	CreatedAt  time.Time `json:"created_at"`
}

type Activity struct {
	ActivityID      string        `json:"activity_id"`
	Type            string        `json:"type"`
	Subject         string        `json:"subject"`
	Description     string        `json:"description"`
	Sentiment       signals.Label `json:"sentiment"`
	DurationSeconds float64       `json:"duration_seconds,omitempty"`
	Outcome         string        `json:"outcome"`
	LoggedAt        time.Time     `json:"logged_at"`
	CallID          string        `json:"call_id"`
}

// Stage maps an opportunity level onto a sales stage.
func Stage(l decision.Level) string {
	switch l {
	case decision.LevelHigh:
		return "Qualified Lead"
	case decision.LevelLow:
		return "Cold Lead"
	default:
		return "In Discussion"
	}
}

// EstimatedValue is a flat deal size per opportunity level.
func EstimatedValue(l decision.Level) int {
	switch l {
	case decision.LevelHigh:
		return 50000
	case decision.LevelLow:
		return 10000
	default:
		return 25000
	}
}

// WinProbability is a percentage per opportunity level.
func WinProbability(l decision.Level) int {
	switch l {
	case decision.LevelHigh:
		return 75
	case decision.LevelLow:
		return 25
	default:
		return 50
	}
}

var dueDays = map[string]int{
	decision.PriorityUrgent: 1,
	decision.PriorityHigh:   2,
	decision.PriorityMedium: 5,
	decision.PriorityLow:    7,
}

// DueDate schedules a follow-up task by priority level. Unknown levels get
// the medium window.
func DueDate(from time.Time, priorityLevel string) time.Time {
	days, ok := dueDays[priorityLevel]
	if !ok {
		days = dueDays[decision.PriorityMedium]
	}
	return from.AddDate(0, 0, days)
}

// Assignee picks the owning team for follow-up work.
func Assignee(d decision.Decision) string {
	switch {
	case d.EscalationRequired:
		return "Senior Manager"
	case d.Intent == signals.IntentComplaint:
		return "Support Team"
	default:
		return "Sales Team"
	}
}

// newID returns prefix-XXXXXXXX with eight upper-case hex digits.
func newID(prefix string) string {
	u := uuid.New()
	hex := strings.ReplaceAll(u.String(), "-", "")
	return prefix + "-" + strings.ToUpper(hex[:8])
}
