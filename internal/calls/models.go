package calls

import (
	"time"

	"call-intelligence/internal/decision"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
)

// Call is one analyzed call and its review state.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
// Decision is written once at insert and never updated; only the review
// fields change afterwards.
type Call struct {
	ID          string `json:"call_id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	AudioFilename   string  `json:"audio_filename,omitempty" db:"audio_filename"`
	Language        string  `json:"language,omitempty" db:"language"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" db:"duration_seconds"`

	Transcript string                  `json:"transcript" db:"transcript"`
	Segments   []transcription.Segment `json:"segments,omitempty" db:"segments"`

	Signals        signals.Bundle           `json:"nlp_analysis" db:"signals"`
	Recommendation recommend.Recommendation `json:"llm_output" db:"recommendation"`
	Decision       decision.Decision        `json:"final_decision" db:"decision"`

	Status      Status     `json:"status" db:"status"`
	ReviewNotes string     `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedBy  string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a review may move a call from one status to
// another. Only pending calls can be reviewed.
func CanTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusApproved || to == StatusRejected)
}
