package crm

import (
	"context"
	"fmt"
	"time"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
	"call-intelligence/pkg/logger"
)

// SubjectSynced carries SyncResult events.
const SubjectSynced = "calls.crm.synced"

const defaultCRMType = "Salesforce"

// Result statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Auditor is the slice of audit.Service used here.
type Auditor interface {
	LogCRMSync(ctx context.Context, workspaceID, callID, actorUserID string, results any) error
}

// EventSink publishes JSON events; notify.EventPublisher satisfies it.
type EventSink interface {
	Publish(subject string, v any) error
}

// ActionResult is the outcome of one requested action. Exactly one record
// field is set on success.
type ActionResult struct {
	Action      Action       `json:"action"`
	Status      string       `json:"status"`
	CRMAction   string       `json:"crm_action"`
	Message     string       `json:"message"`
	Lead        *Lead        `json:"lead_data,omitempty"`
	Opportunity *Opportunity `json:"opportunity_data,omitempty"`
	Task        *Task        `json:"task_data,omitempty"`
	Activity    *Activity    `json:"activity_data,omitempty"`
}

type SyncResult struct {
	Status      string         `json:"status"`
	CRMType     string         `json:"crm_type"`
	CallID      string         `json:"call_id"`
	WorkspaceID string         `json:"workspace_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Actions     []ActionResult `json:"actions_performed"`
}

// Service turns stored calls into CRM records. There is no remote CRM
// client yet; records are built locally and handed to the event sink for
// downstream connectors.
type Service struct {
	crmType string
	audit   Auditor
	events  EventSink
	clock   func() time.Time
	newID   func(prefix string) string
}

func NewService(crmType string, auditor Auditor, events EventSink) *Service {
	if crmType == "" {
		crmType = defaultCRMType
	}
	return &Service{crmType: crmType, audit: auditor, events: events, clock: time.Now, newID: newID}
}

// Sync runs each action against the call in order. Unknown actions are
// reported as errors in their slot; Sync itself never fails.
func (s *Service) Sync(ctx context.Context, c calls.Call, actions []Action, actorUserID string) SyncResult {
	if len(actions) == 0 {
		actions = DefaultActions
	}
	now := s.clock().UTC()
	out := SyncResult{
		CRMType:     s.crmType,
		CallID:      c.ID,
		WorkspaceID: c.WorkspaceID,
		Timestamp:   now,
		Actions:     make([]ActionResult, 0, len(actions)),
	}

	failed := 0
	for _, a := range actions {
		r := s.run(c, a, now)
		if r.Status != StatusSuccess {
			failed++
		}
		out.Actions = append(out.Actions, r)
	}
	switch {
	case failed == 0:
		out.Status = StatusSuccess
	case failed == len(actions):
		out.Status = StatusError
	default:
		out.Status = StatusPartial
	}

	log := logger.From(ctx)
	if s.audit != nil {
		if err := s.audit.LogCRMSync(ctx, c.WorkspaceID, c.ID, actorUserID, out); err != nil {
			log.Warn("audit crm sync failed", "call_id", c.ID, "err", err)
		}
	}
	if s.events != nil {
		if err := s.events.Publish(SubjectSynced, out); err != nil {
			log.Warn("crm sync publish failed", "call_id", c.ID, "err", err)
		}
	}
	return out
}

func (s *Service) run(c calls.Call, a Action, now time.Time) ActionResult {
	switch a {
	case ActionCreateLead:
		l := s.lead(c, now)
		return ActionResult{Action: a, Status: StatusSuccess, CRMAction: "lead_created", Lead: &l,
			Message: fmt.Sprintf("Lead %s created successfully in %s", l.LeadID, s.crmType)}
	case ActionUpdateOpportunity:
		o := s.opportunity(c, now)
		return ActionResult{Action: a, Status: StatusSuccess, CRMAction: "opportunity_updated", Opportunity: &o,
			Message: fmt.Sprintf("Opportunity %s updated in %s", o.OpportunityID, s.crmType)}
	case ActionCreateTask:
		t := s.task(c, now)
		return ActionResult{Action: a, Status: StatusSuccess, CRMAction: "task_created", Task: &t,
			Message: fmt.Sprintf("Task %s created in %s", t.TaskID, s.crmType)}
	case ActionLogActivity:
		act := s.activity(c, now)
		return ActionResult{Action: a, Status: StatusSuccess, CRMAction: "activity_logged", Activity: &act,
			Message: fmt.Sprintf("Activity %s logged in %s", act.ActivityID, s.crmType)}
	default:
		return ActionResult{Action: a, Status: StatusError, CRMAction: "unknown_action",
			Message: fmt.Sprintf("unknown crm action %q", string(a))}
	}
}

func (s *Service) lead(c calls.Call, now time.Time) Lead {
	return Lead{
		LeadID:            s.newID("LEAD"),
		CustomerName:      firstEntity(c.Signals.Entities, signals.EntityPerson, "Unknown Customer"),
		Organization:      firstEntity(c.Signals.Entities, signals.EntityOrg, ""),
		Source:            source,
		Priority:          c.Decision.PriorityLevel,
		OpportunityLevel:  c.Decision.OpportunityLevel,
		RiskLevel:         c.Decision.RiskLevel,
		CallSummary:       summary(c.Recommendation),
		RecommendedAction: c.Decision.FinalAction,
		AssignedTo:        Assignee(c.Decision),
		SentimentScore:    c.Signals.Sentiment.Compound,
		CallID:            c.ID,
		CreatedAt:         now,
	}
}

func (s *Service) opportunity(c calls.Call, now time.Time) Opportunity {
	lvl := c.Decision.OpportunityLevel
	return Opportunity{
		OpportunityID: s.newID("OPP"),
		Stage:         Stage(lvl),
		Value:         EstimatedValue(lvl),
		Probability:   WinProbability(lvl),
		NextAction:    c.Decision.FinalAction,
		Priority:      c.Decision.PriorityLevel,
		LastContact:   now,
		CallID:        c.ID,
	}
}

func (s *Service) task(c calls.Call, now time.Time) Task {
	subject := c.Decision.FinalAction
	if subject == "" {
		subject = "Follow up on call"
	}
	return Task{
		TaskID:     s.newID("TASK"),
		Type:       "follow_up",
		Subject:    subject,
		Priority:   c.Decision.PriorityLevel,
		AssignedTo: Assignee(c.Decision),
		DueDate:    DueDate(now, c.Decision.PriorityLevel),
		Status:     "pending",
		RelatedTo:  c.ID,
		CreatedAt:  now,
	}
}

func (s *Service) activity(c calls.Call, now time.Time) Activity {
	name := c.AudioFilename
	if name == "" {
		name = "transcript"
	}
	return Activity{
		ActivityID:      s.newID("ACT"),
		Type:            "phone_call",
		Subject:         "Call: " + name,
		Description:     summary(c.Recommendation),
		Sentiment:       c.Signals.Sentiment.Label,
		DurationSeconds: c.DurationSeconds,
		Outcome:         c.Decision.FinalAction,
		LoggedAt:        now,
		CallID:          c.ID,
	}
}

func firstEntity(ents []signals.Entity, label signals.EntityLabel, fallback string) string {
	for _, e := range ents {
		if e.Label == label && e.Text != "" {
			return e.Text
		}
	}
	return fallback
}

func summary(r recommend.Recommendation) string {
	if r.CallSummaryShort == recommend.Placeholder {
		return ""
	}
	return r.CallSummaryShort
}
