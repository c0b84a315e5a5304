package notify

import (
	"context"
	"errors"
	"log/slog"

	"call-intelligence/internal/calls"
	"call-intelligence/pkg/logger"
)

// Delivery is the outcome of one notification attempt.
type Delivery struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Notifier delivers a decided call somewhere. Implementations report
// failures in the returned deliveries rather than as an error.
type Notifier interface {
	Notify(ctx context.Context, c calls.Call) []Delivery
}

// Auditor is the slice of audit.Service used here.
type Auditor interface {
	LogNotification(ctx context.Context, workspaceID, callID, channel, recipient string, sendErr error) error
}

// Dispatcher fans a call out to every configured notifier. It never fails:
// problems are logged, audited and handed back to the caller.
type Dispatcher struct {
	notifiers []Notifier
	audit     Auditor
}

func NewDispatcher(auditor Auditor, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, audit: auditor}
}

func (d *Dispatcher) Dispatch(ctx context.Context, c calls.Call) []Delivery {
	out := []Delivery{}
	if d == nil {
		return out
	}
	log := logger.From(ctx)
	for _, n := range d.notifiers {
		for _, del := range n.Notify(ctx, c) {
			out = append(out, del)
			d.record(ctx, log, c, del)
		}
	}
	return out
}

func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, c calls.Call, del Delivery) {
	var sendErr error
	if del.Status == StatusFailed {
		sendErr = errors.New(del.Error)
		log.Warn("notification failed", "call_id", c.ID, "channel", del.Channel, "recipient", del.Recipient, "err", del.Error)
	}
	if del.Status == StatusSkipped || d.audit == nil {
		return
	}
	if err := d.audit.LogNotification(ctx, c.WorkspaceID, c.ID, del.Channel, del.Recipient, sendErr); err != nil {
		log.Warn("audit notification failed", "call_id", c.ID, "err", err)
	}
}

// ReviewerMail mails the action notification to reviewers when a decision
// needs a human: escalation, urgent priority or a revenue opportunity.
type ReviewerMail struct {
	Mailer     *Mailer
	Recipients []string
}

func (r ReviewerMail) Notify(ctx context.Context, c calls.Call) []Delivery {
	if r.Mailer == nil || len(r.Recipients) == 0 || !NeedsReviewer(c) {
		return nil
	}
	subject, body, err := RenderAction(c)
	if err != nil {
		return []Delivery{{Channel: "email", Status: StatusFailed, Error: err.Error()}}
	}
	out := make([]Delivery, 0, len(r.Recipients))
	for _, to := range r.Recipients {
		res, err := r.Mailer.Send(ctx, to, subject, body)
		del := Delivery{Channel: "email", Recipient: to, Status: res.Status}
		if err != nil {
			del.Status = StatusFailed
			del.Error = err.Error()
		}
		out = append(out, del)
	}
	return out
}

// NeedsReviewer reports whether a decision warrants paging reviewers.
func NeedsReviewer(c calls.Call) bool {
	d := c.Decision
	return d.EscalationRequired || d.UrgentFlag || d.RevenueOpportunity
}
