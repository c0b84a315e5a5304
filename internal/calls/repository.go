package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("calls: not found")
	ErrInvalidArgument   = errors.New("calls: invalid argument")
	ErrInvalidTransition = errors.New("calls: invalid status transition")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListFilter selects calls for List. Results are always ordered by
// decision priority descending, then newest first.
type ListFilter struct {
	WorkspaceID string
	Status      Status
	Limit       int
	Offset      int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type StatusUpdate struct {
	From       Status
	To         Status
	ReviewedBy string
	Notes      string
	At         time.Time
}

// Repository persists calls. UpdateStatus must apply only when the stored
// status still equals u.From, returning ErrInvalidTransition otherwise.
type Repository interface {
	Insert(ctx context.Context, c Call) error
	Get(ctx context.Context, workspaceID, id string) (Call, error)
	List(ctx context.Context, f ListFilter) ([]Call, error)
	ListAll(ctx context.Context, workspaceID string) ([]Call, error)
	UpdateStatus(ctx context.Context, workspaceID, id string, u StatusUpdate) (Call, error)
	// ListPending returns pending calls of every workspace created at or
	// before createdBefore, oldest first. Used by background jobs only.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Call, error)
}
