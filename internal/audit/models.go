package audit

import (
	"encoding/json"
	"time"
)

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - actor and ip capture are best-effort; do not block the pipeline on audit failures.
type Event struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Type        EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated reviewer, empty for pipeline events.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	CallID string `json:"call_id,omitempty" db:"call_id"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeDecisionRecorded EventType = "decision_recorded"
	EventTypeCallApproved     EventType = "call_approved"
	EventTypeCallRejected     EventType = "call_rejected"
	EventTypeNotificationSent EventType = "notification_sent"
	EventTypeCRMSynced        EventType = "crm_synced"
	EventTypeReminderSent     EventType = "reminder_sent"
)

// JSON encodes v for Event.Metadata. Encoding failures produce "{}".
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
