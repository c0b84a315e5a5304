package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu    sync.RWMutex
	calls map[string]Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: make(map[string]Call)}
}

func key(workspaceID, id string) string { return workspaceID + "/" + id }

func (r *MemoryRepo) Insert(_ context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(c.WorkspaceID, c.ID)
	if _, ok := r.calls[k]; ok {
		return ErrInvalidArgument
	}
	r.calls[k] = c
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID, id string) (Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[key(workspaceID, id)]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	f = f.normalized()
	all, _ := r.ListAll(ctx, f.WorkspaceID)

	out := all[:0]
	for _, c := range all {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sortByPriority(out)

	if f.Offset >= len(out) {
		return []Call{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListAll(_ context.Context, workspaceID string) ([]Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, workspaceID, id string, u StatusUpdate) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(workspaceID, id)
	c, ok := r.calls[k]
	if !ok {
		return Call{}, ErrNotFound
	}
	if c.Status != u.From {
		return Call{}, ErrInvalidTransition
	}
	at := u.At
	c.Status = u.To
	c.ReviewedBy = u.ReviewedBy
	c.ReviewNotes = u.Notes
	c.ReviewedAt = &at
	c.UpdatedAt = at
	r.calls[k] = c
	return c, nil
}

func (r *MemoryRepo) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]Call, error) {
	r.mu.RLock()
	out := []Call{}
	for _, c := range r.calls {
		if c.Status == StatusPending && !c.CreatedAt.After(createdBefore) {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByPriority(cs []Call) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Decision.PriorityScore != b.Decision.PriorityScore {
			return a.Decision.PriorityScore > b.Decision.PriorityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
