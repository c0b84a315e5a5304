package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/decision"
)

type recordingObserver struct {
	mu       sync.Mutex
	recorded []string
	changed  []Status
}

func (o *recordingObserver) CallRecorded(_ context.Context, c Call) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded = append(o.recorded, c.ID)
}

func (o *recordingObserver) StatusChanged(_ context.Context, c Call, from Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changed = append(o.changed, from, c.Status)
}

func newTestService() (*Service, *audit.MemoryRepo, *recordingObserver) {
	ar := audit.NewMemoryRepo()
	obs := &recordingObserver{}
	svc := NewService(NewMemoryRepo(), audit.NewService(ar), obs)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, ar, obs
}

func record(t *testing.T, svc *Service, ws string, priority int) Call {
	t.Helper()
	c, err := svc.Record(context.Background(), RecordInput{
		WorkspaceID: ws,
		Transcript:  "hello",
		Decision:    decision.Decision{PriorityScore: priority, FinalAction: "Call back", RulesApplied: []string{}},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return c
}

func TestService_RecordStartsPending(t *testing.T) {
	svc, ar, obs := newTestService()
	c := record(t, svc, "w", 40)

	if c.Status != StatusPending || c.ID == "" {
		t.Fatalf("unexpected call %+v", c)
	}
	evs := ar.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeDecisionRecorded || evs[0].CallID != c.ID {
		t.Fatalf("expected decision_recorded audit, got %+v", evs)
	}
	if len(obs.recorded) != 1 {
		t.Fatalf("observer not notified")
	}

	if _, err := svc.Record(context.Background(), RecordInput{WorkspaceID: "w"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty transcript, got %v", err)
	}
}

func TestService_ListOrdersByPriority(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, p := range []int{20, 95, 50, 70} {
		record(t, svc, "w", p)
	}
	record(t, svc, "other", 100)

	got, err := svc.List(ctx, ListFilter{WorkspaceID: "w"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int{95, 70, 50, 20}
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.Decision.PriorityScore != want[i] {
			t.Fatalf("position %d: got %d want %d", i, c.Decision.PriorityScore, want[i])
		}
	}

	page, _ := svc.List(ctx, ListFilter{WorkspaceID: "w", Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Decision.PriorityScore != 70 {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, err := svc.List(ctx, ListFilter{WorkspaceID: "w", Status: "archived"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestService_ApproveOnlyFromPending(t *testing.T) {
	svc, ar, obs := newTestService()
	ctx := context.Background()
	c := record(t, svc, "w", 60)

	got, err := svc.Approve(ctx, "w", c.ID, Review{ActorUserID: "u1", ActorRole: "reviewer", Notes: "ok"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != StatusApproved || got.ReviewedBy != "u1" || got.ReviewedAt == nil {
		t.Fatalf("unexpected reviewed call %+v", got)
	}
	if _, err := svc.Reject(ctx, "w", c.ID, Review{ActorUserID: "u2"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := svc.Approve(ctx, "w", "missing", Review{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	evs := ar.Events()
	if evs[len(evs)-1].Type != audit.EventTypeCallApproved {
		t.Fatalf("expected call_approved audit, got %+v", evs[len(evs)-1])
	}
	if len(obs.changed) != 2 || obs.changed[0] != StatusPending || obs.changed[1] != StatusApproved {
		t.Fatalf("unexpected observer transitions %v", obs.changed)
	}

	pending, _ := svc.List(ctx, ListFilter{WorkspaceID: "w", Status: StatusPending})
	if len(pending) != 0 {
		t.Fatalf("expected no pending calls, got %d", len(pending))
	}
}

func TestService_ConcurrentReviewsOnlyOneWins(t *testing.T) {
	svc, _, _ := newTestService()
	c := record(t, svc, "w", 60)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.Approve(context.Background(), "w", c.ID, Review{})
			} else {
				_, err = svc.Reject(context.Background(), "w", c.ID, Review{})
			}
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful review, got %d", wins)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusPending, StatusRejected) {
		t.Fatalf("pending -> rejected must be allowed")
	}
	if CanTransition(StatusApproved, StatusRejected) || CanTransition(StatusPending, StatusPending) {
		t.Fatalf("unexpected allowed transition")
	}
}
