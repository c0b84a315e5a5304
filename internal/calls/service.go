package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"
)

// Auditor is the slice of audit.Service used here.
type Auditor interface {
	Append(ctx context.Context, e audit.Event) error
}

// Observer is told about persisted changes. Observers run after the write
// has committed and their failures are only logged.
type Observer interface {
	CallRecorded(ctx context.Context, c Call)
	StatusChanged(ctx context.Context, c Call, from Status)
}

// Service owns call persistence and review transitions.
type Service struct {
	repo      Repository
	audit     Auditor
	observers []Observer
	clock     func() time.Time
}

func NewService(repo Repository, auditor Auditor, observers ...Observer) *Service {
	return &Service{repo: repo, audit: auditor, observers: observers, clock: time.Now}
}

type RecordInput struct {
	WorkspaceID     string
	AudioFilename   string
	Language        string
	DurationSeconds float64
	Transcript      string
	Segments        []transcription.Segment
	Signals         signals.Bundle
	Recommendation  recommend.Recommendation
	Decision        decision.Decision
}

// Record stores a new call in pending status.
func (s *Service) Record(ctx context.Context, in RecordInput) (Call, error) {
	if in.WorkspaceID == "" || in.Transcript == "" {
		return Call{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Call{
		ID:              uuid.NewString(),
		WorkspaceID:     in.WorkspaceID,
		AudioFilename:   in.AudioFilename,
		Language:        in.Language,
		DurationSeconds: in.DurationSeconds,
		Transcript:      in.Transcript,
		Segments:        in.Segments,
		Signals:         in.Signals,
		Recommendation:  in.Recommendation,
		Decision:        in.Decision,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return Call{}, fmt.Errorf("calls: insert: %w", err)
	}

	s.appendAudit(ctx, audit.Event{
		WorkspaceID: c.WorkspaceID,
		Type:        audit.EventTypeDecisionRecorded,
		CallID:      c.ID,
		Message:     c.Decision.FinalAction,
		Metadata:    audit.JSON(map[string]any{"priority_score": c.Decision.PriorityScore, "rules_applied": c.Decision.RulesApplied}),
	})
	for _, o := range s.observers {
		o.CallRecorded(ctx, c)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Call, error) {
	if workspaceID == "" || id == "" {
		return Call{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, workspaceID, id)
}

// List returns calls ordered by decision priority, highest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Call, error) {
	if f.WorkspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListAll(ctx context.Context, workspaceID string) ([]Call, error) {
	return s.repo.ListAll(ctx, workspaceID)
}

// ListPending returns pending calls across workspaces created at or before
// createdBefore, oldest first.
func (s *Service) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Call, error) {
	return s.repo.ListPending(ctx, createdBefore, limit)
}

type Review struct {
	ActorUserID string
	ActorRole   string
	IPAddress   string
	Notes       string
}

func (s *Service) Approve(ctx context.Context, workspaceID, id string, r Review) (Call, error) {
	return s.transition(ctx, workspaceID, id, StatusApproved, r)
}

func (s *Service) Reject(ctx context.Context, workspaceID, id string, r Review) (Call, error) {
	return s.transition(ctx, workspaceID, id, StatusRejected, r)
}

func (s *Service) transition(ctx context.Context, workspaceID, id string, to Status, r Review) (Call, error) {
	cur, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return Call{}, err
	}
	if !CanTransition(cur.Status, to) {
		return Call{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
	}

	c, err := s.repo.UpdateStatus(ctx, workspaceID, id, StatusUpdate{
		From:       cur.Status,
		To:         to,
		ReviewedBy: r.ActorUserID,
		Notes:      r.Notes,
		At:         s.clock().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return Call{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
		}
		return Call{}, err
	}

	typ := audit.EventTypeCallApproved
	if to == StatusRejected {
		typ = audit.EventTypeCallRejected
	}
	s.appendAudit(ctx, audit.Event{
		WorkspaceID: workspaceID,
		Type:        typ,
		ActorUserID: r.ActorUserID,
		ActorRole:   r.ActorRole,
		IPAddress:   r.IPAddress,
		CallID:      id,
		Message:     r.Notes,
	})
	for _, o := range s.observers {
		o.StatusChanged(ctx, c, cur.Status)
	}
	return c, nil
}

// appendAudit is best-effort.
func (s *Service) appendAudit(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", e.Type, "call_id", e.CallID, "err", err)
	}
}
