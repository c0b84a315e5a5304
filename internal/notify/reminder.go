package notify

import (
	"context"
	"log/slog"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
)

const (
	defaultReminderInterval = 15 * time.Minute
	defaultReminderBatch    = 200
	// ReminderRepeat is the minimum gap between two reminders for one call.
	ReminderRepeat = 24 * time.Hour
)

// ReminderDelays is how long a call may stay pending, per priority level,
// before reviewers are reminded.
var ReminderDelays = map[string]time.Duration{
	decision.PriorityUrgent: 2 * time.Hour,
	decision.PriorityHigh:   6 * time.Hour,
	decision.PriorityMedium: 24 * time.Hour,
	decision.PriorityLow:    48 * time.Hour,
}

func reminderDelay(level string) time.Duration {
	if d, ok := ReminderDelays[level]; ok {
		return d
	}
	return ReminderDelays[decision.PriorityMedium]
}

func minReminderDelay() time.Duration {
	out := time.Duration(0)
	for _, d := range ReminderDelays {
		if out == 0 || d < out {
			out = d
		}
	}
	return out
}

// PendingSource lists calls still waiting on review. calls.Service
// satisfies it.
type PendingSource interface {
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]calls.Call, error)
}

// ReminderLog is the slice of audit.Service the scheduler uses to find and
// record reminders.
type ReminderLog interface {
	Latest(ctx context.Context, workspaceID, callID string, t audit.EventType) (audit.Event, bool, error)
	LogReminder(ctx context.Context, workspaceID, callID, recipient, flavour string, at time.Time) error
	LogNotification(ctx context.Context, workspaceID, callID, channel, recipient string, sendErr error) error
}

// TickLock keeps concurrent api replicas from reminding twice. Acquire
// reports false when another replica holds the tick.
type TickLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// ReminderReport summarises one pass.
type ReminderReport struct {
	Checked int `json:"checked"`
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// ReminderScheduler re-mails reviewers about calls left pending past the
// delay of their priority level, at most once per ReminderRepeat.
type ReminderScheduler struct {
	Calls      PendingSource
	Audit      ReminderLog
	Mailer     *Mailer
	Recipients []string
	Lock       TickLock // optional
	Interval   time.Duration
	BatchSize  int
	Log        *slog.Logger
	Clock      func() time.Time
}

func (s *ReminderScheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *ReminderScheduler) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Run ticks until ctx is cancelled.
func (s *ReminderScheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	s.log().Info("reminder scheduler started", "interval", interval.String(), "recipients", len(s.Recipients))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.log().Info("reminder scheduler stopped")
			return
		case <-t.C:
		}
	}
}

func (s *ReminderScheduler) tick(ctx context.Context) {
	if s.Lock != nil {
		release, ok, err := s.Lock.Acquire(ctx)
		if err != nil {
			s.log().Warn("reminder lock failed", "err", err)
			return
		}
		if !ok {
			s.log().Debug("reminder tick held by another instance")
			return
		}
		defer release()
	}
	rep, err := s.RunOnce(ctx)
	if err != nil {
		s.log().Error("reminder pass failed", "err", err)
		return
	}
	if rep.Due > 0 {
		s.log().Info("reminder pass", "checked", rep.Checked, "due", rep.Due, "sent", rep.Sent, "failed", rep.Failed)
	}
}

// RunOnce sends every reminder due now. A failed send is audited and
// retried on the next pass.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (ReminderReport, error) {
	var rep ReminderReport
	if s.Mailer == nil || !s.Mailer.Enabled() || len(s.Recipients) == 0 {
		return rep, nil
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultReminderBatch
	}

	now := s.now()
	pending, err := s.Calls.ListPending(ctx, now.Add(-minReminderDelay()), batch)
	if err != nil {
		return rep, err
	}
	for _, c := range pending {
		rep.Checked++
		due, err := s.due(ctx, c, now)
		if err != nil {
			s.log().Warn("reminder lookup failed", "call_id", c.ID, "err", err)
			continue
		}
		if !due {
			continue
		}
		rep.Due++
		if s.remind(ctx, c, now) {
			rep.Sent++
		} else {
			rep.Failed++
		}
	}
	return rep, nil
}

func levelOf(c calls.Call) string {
	if c.Decision.PriorityLevel != "" {
		return c.Decision.PriorityLevel
	}
	return decision.PriorityLevel(c.Decision.PriorityScore)
}

func (s *ReminderScheduler) due(ctx context.Context, c calls.Call, now time.Time) (bool, error) {
	if now.Sub(c.CreatedAt) < reminderDelay(levelOf(c)) {
		return false, nil
	}
	last, ok, err := s.Audit.Latest(ctx, c.WorkspaceID, c.ID, audit.EventTypeReminderSent)
	if err != nil {
		return false, err
	}
	return !ok || now.Sub(last.CreatedAt) >= ReminderRepeat, nil
}

// remind mails every recipient and records one reminder per delivered mail.
// It reports whether at least one mail went out.
func (s *ReminderScheduler) remind(ctx context.Context, c calls.Call, now time.Time) bool {
	flavour := ReminderFollowUp
	if levelOf(c) == decision.PriorityUrgent {
		flavour = ReminderUrgent
	}
	subject, body, err := RenderReminder(c, flavour)
	if err != nil {
		s.log().Error("render reminder failed", "call_id", c.ID, "err", err)
		return false
	}

	sent := false
	for _, to := range s.Recipients {
		res, err := s.Mailer.Send(ctx, to, subject, body)
		if err != nil {
			s.log().Warn("reminder send failed", "call_id", c.ID, "recipient", to, "err", err)
			if aerr := s.Audit.LogNotification(ctx, c.WorkspaceID, c.ID, "email_reminder", to, err); aerr != nil {
				s.log().Warn("audit reminder failure failed", "call_id", c.ID, "err", aerr)
			}
			continue
		}
		if res.Status != StatusSent {
			continue
		}
		sent = true
		if err := s.Audit.LogReminder(ctx, c.WorkspaceID, c.ID, to, flavour, now); err != nil {
			s.log().Warn("audit reminder failed", "call_id", c.ID, "err", err)
		}
	}
	return sent
}
