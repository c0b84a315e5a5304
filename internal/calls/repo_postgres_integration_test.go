//go:build integration

package calls

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"call-intelligence/internal/decision"
	"call-intelligence/pkg/utils"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestRepo(t *testing.T) *PostgresRepo {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	db, err := utils.OpenPostgres(context.Background(), utils.PgxDriver, dsn, utils.PostgresPoolConfig{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := NewPostgresRepo(db)
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return r
}

func TestIntegration_PostgresReviewIsCompareAndSet(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	ws := "ws-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	c := Call{
		ID:          uuid.NewString(),
		WorkspaceID: ws,
		Transcript:  "I want to cancel.",
		Decision:    decision.Decision{FinalAction: decision.ActionEscalate, PriorityScore: 90},
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Insert(ctx, c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.UpdateStatus(ctx, ws, c.ID, StatusUpdate{From: StatusPending, To: StatusApproved, ReviewedBy: "u-1", At: now})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one review to win, got %d", wins)
	}

	got, err := r.Get(ctx, ws, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved || got.ReviewedBy != "u-1" || got.ReviewedAt == nil {
		t.Fatalf("unexpected stored call: %+v", got)
	}
	if got.Decision.PriorityScore != 90 {
		t.Fatalf("decision must survive review, got %+v", got.Decision)
	}

	if _, err := r.UpdateStatus(ctx, ws, "missing", StatusUpdate{From: StatusPending, To: StatusRejected, At: now}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
