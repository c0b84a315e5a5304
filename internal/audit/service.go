package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// There are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByCall(ctx context.Context, workspaceID, callID string) ([]Event, error)
}

// Service records the audit trail of decisions, reviews and outbound actions.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// Trail returns a call's events oldest first.
func (s *Service) Trail(ctx context.Context, workspaceID, callID string) ([]Event, error) {
	if workspaceID == "" || callID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListByCall(ctx, workspaceID, callID)
}

// LogNotification records an outbound notification (email, event).
func (s *Service) LogNotification(ctx context.Context, workspaceID, callID, channel, recipient string, sendErr error) error {
	meta := map[string]any{"channel": channel, "recipient": recipient, "ok": sendErr == nil}
	if sendErr != nil {
		meta["error"] = sendErr.Error()
	}
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeNotificationSent,
		CallID:      callID,
		Message:     channel,
		Metadata:    JSON(meta),
	})
}

// LogCRMSync records the outcome of a CRM sync.
func (s *Service) LogCRMSync(ctx context.Context, workspaceID, callID, actorUserID string, results any) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeCRMSynced,
		ActorUserID: actorUserID,
		CallID:      callID,
		Message:     "crm sync",
		Metadata:    JSON(results),
	})
}

// LogReminder records a delivered pending-review reminder sent at at.
func (s *Service) LogReminder(ctx context.Context, workspaceID, callID, recipient, flavour string, at time.Time) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeReminderSent,
		CallID:      callID,
		Message:     flavour,
		Metadata:    JSON(map[string]string{"recipient": recipient, "type": flavour}),
		CreatedAt:   at,
	})
}

// Latest returns the newest event of type t on a call.
func (s *Service) Latest(ctx context.Context, workspaceID, callID string, t EventType) (Event, bool, error) {
	trail, err := s.Trail(ctx, workspaceID, callID)
	if err != nil {
		return Event{}, false, err
	}
	var out Event
	found := false
	for _, e := range trail {
		if e.Type == t && (!found || !e.CreatedAt.Before(out.CreatedAt)) {
			out, found = e, true
		}
	}
	return out, found, nil
}
