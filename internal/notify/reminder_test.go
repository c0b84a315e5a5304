package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
)

func pendingCall(id string, priority int, status calls.Status, created time.Time) calls.Call {
	return calls.Call{
		ID:            id,
		WorkspaceID:   "ws-1",
		AudioFilename: id + ".wav",
		Status:        status,
		CreatedAt:     created,
		UpdatedAt:     created,
		Decision: decision.Decision{
			FinalAction:   "Call the customer back",
			PriorityScore: priority,
			PriorityLevel: decision.PriorityLevel(priority),
			RulesApplied:  []string{},
		},
	}
}

type reminderFixture struct {
	sched *ReminderScheduler
	audit *audit.Service
	sent  *[]sentMail
	now   *time.Time
}

func newReminderFixture(t *testing.T, sendErr error) reminderFixture {
	t.Helper()
	t0 := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	repo := calls.NewMemoryRepo()
	for _, c := range []calls.Call{
		pendingCall("urgent", 95, calls.StatusPending, t0.Add(-3*time.Hour)),
		pendingCall("high", 75, calls.StatusPending, t0.Add(-3*time.Hour)),
		pendingCall("medium", 50, calls.StatusPending, t0.Add(-25*time.Hour)),
		pendingCall("low", 10, calls.StatusPending, t0.Add(-30*time.Hour)),
		pendingCall("done", 95, calls.StatusApproved, t0.Add(-100*time.Hour)),
	} {
		if err := repo.Insert(context.Background(), c); err != nil {
			t.Fatalf("insert %s: %v", c.ID, err)
		}
	}
	auditSvc := audit.NewService(audit.NewMemoryRepo())
	m, sent := testMailer(t, "secret", sendErr)

	now := t0
	return reminderFixture{
		sched: &ReminderScheduler{
			Calls:      repo,
			Audit:      auditSvc,
			Mailer:     m,
			Recipients: []string{"lead@example.com"},
			Log:        quietLogger(),
			Clock:      func() time.Time { return now },
		},
		audit: auditSvc,
		sent:  sent,
		now:   &now,
	}
}

func TestReminderScheduler_DelaysByPriorityLevel(t *testing.T) {
	f := newReminderFixture(t, nil)
	ctx := context.Background()

	rep, err := f.sched.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Due != 2 || rep.Sent != 2 || rep.Failed != 0 {
		t.Fatalf("expected urgent and medium reminders, got %+v", rep)
	}
	if len(*f.sent) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(*f.sent))
	}

	e, ok, err := f.audit.Latest(ctx, "ws-1", "urgent", audit.EventTypeReminderSent)
	if err != nil || !ok || e.Message != ReminderUrgent {
		t.Fatalf("expected urgent reminder recorded, got %+v ok=%v err=%v", e, ok, err)
	}
	e, ok, _ = f.audit.Latest(ctx, "ws-1", "medium", audit.EventTypeReminderSent)
	if !ok || e.Message != ReminderFollowUp {
		t.Fatalf("expected follow-up reminder for medium call, got %+v", e)
	}
	if _, ok, _ := f.audit.Latest(ctx, "ws-1", "high", audit.EventTypeReminderSent); ok {
		t.Fatalf("high call is not due before 6h")
	}
}

func TestReminderScheduler_WaitsBetweenReminders(t *testing.T) {
	f := newReminderFixture(t, nil)
	ctx := context.Background()

	if _, err := f.sched.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	*f.now = f.now.Add(time.Hour)
	rep, _ := f.sched.RunOnce(ctx)
	if rep.Due != 0 || len(*f.sent) != 2 {
		t.Fatalf("no reminder may repeat within 24h, got %+v mails=%d", rep, len(*f.sent))
	}

	*f.now = f.now.Add(23 * time.Hour)
	rep, _ = f.sched.RunOnce(ctx)
	// urgent and medium repeat, high (27h old) and low (54h old) are now due
	if rep.Due != 4 || rep.Sent != 4 {
		t.Fatalf("expected 4 reminders after 24h, got %+v", rep)
	}
}

func TestReminderScheduler_FailedSendIsRetried(t *testing.T) {
	f := newReminderFixture(t, errors.New("smtp down"))
	ctx := context.Background()

	rep, err := f.sched.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Due != 2 || rep.Failed != 2 || rep.Sent != 0 {
		t.Fatalf("expected 2 failures, got %+v", rep)
	}
	trail, _ := f.audit.Trail(ctx, "ws-1", "urgent")
	if len(trail) != 1 || trail[0].Type != audit.EventTypeNotificationSent || !strings.Contains(trail[0].Metadata, "smtp down") {
		t.Fatalf("expected audited failure, got %+v", trail)
	}

	*f.now = f.now.Add(15 * time.Minute)
	rep, _ = f.sched.RunOnce(ctx)
	if rep.Due != 2 {
		t.Fatalf("failed reminders must stay due, got %+v", rep)
	}
}

func TestReminderScheduler_DisabledMailerIsNoop(t *testing.T) {
	f := newReminderFixture(t, nil)
	f.sched.Mailer = NewMailer(MailConfig{}, quietLogger())

	rep, err := f.sched.RunOnce(context.Background())
	if err != nil || rep != (ReminderReport{}) {
		t.Fatalf("expected empty report, got %+v err=%v", rep, err)
	}
}

type heldLock struct{ acquired, released int }

func (l *heldLock) Acquire(context.Context) (func(), bool, error) {
	l.acquired++
	if l.acquired > 1 {
		return nil, false, nil
	}
	return func() { l.released++ }, true, nil
}

func TestReminderScheduler_TickHonoursLock(t *testing.T) {
	f := newReminderFixture(t, nil)
	lock := &heldLock{}
	f.sched.Lock = lock

	f.sched.tick(context.Background())
	*f.now = f.now.Add(48 * time.Hour)
	f.sched.tick(context.Background())

	if lock.released != 1 || len(*f.sent) != 2 {
		t.Fatalf("second tick must be skipped while the lock is held elsewhere, released=%d mails=%d", lock.released, len(*f.sent))
	}
}
