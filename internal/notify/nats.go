package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
)

const (
	SubjectDecisionRecorded = "calls.decision.recorded"
	SubjectStatusChanged    = "calls.status.changed"
)

// DecisionEvent is published once per persisted call.
type DecisionEvent struct {
	CallID        string            `json:"call_id"`
	WorkspaceID   string            `json:"workspace_id"`
	AudioFilename string            `json:"audio_filename,omitempty"`
	Decision      decision.Decision `json:"final_decision"`
	RecordedAt    time.Time         `json:"recorded_at"`
}

// StatusEvent is published on every review transition.
type StatusEvent struct {
	CallID      string       `json:"call_id"`
	WorkspaceID string       `json:"workspace_id"`
	From        calls.Status `json:"from"`
	To          calls.Status `json:"to"`
	ReviewedBy  string       `json:"reviewed_by,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	ChangedAt   time.Time    `json:"changed_at"`
}

// publisher is the part of *nats.Conn the EventPublisher uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher emits call lifecycle events to NATS. It is a calls.Observer;
// publish failures are logged and dropped.
type EventPublisher struct {
	conn   *nats.Conn
	pub    publisher
	logger *slog.Logger
}

func NewEventPublisher(url, token string, logger *slog.Logger) (*EventPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("call-intelligence"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &EventPublisher{conn: nc, pub: nc, logger: logger}, nil
}

// Publish JSON-encodes v onto subject.
func (p *EventPublisher) Publish(subject string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.pub.Publish(subject, payload)
}

func (p *EventPublisher) CallRecorded(ctx context.Context, c calls.Call) {
	p.emit(ctx, SubjectDecisionRecorded, DecisionEvent{
		CallID:        c.ID,
		WorkspaceID:   c.WorkspaceID,
		AudioFilename: c.AudioFilename,
		Decision:      c.Decision,
		RecordedAt:    c.CreatedAt,
	})
}

func (p *EventPublisher) StatusChanged(ctx context.Context, c calls.Call, from calls.Status) {
	at := c.UpdatedAt
	if c.ReviewedAt != nil {
		at = *c.ReviewedAt
	}
	p.emit(ctx, SubjectStatusChanged, StatusEvent{
		CallID:      c.ID,
		WorkspaceID: c.WorkspaceID,
		From:        from,
		To:          c.Status,
		ReviewedBy:  c.ReviewedBy,
		Notes:       c.ReviewNotes,
		ChangedAt:   at,
	})
}

func (p *EventPublisher) emit(_ context.Context, subject string, v any) {
	if err := p.Publish(subject, v); err != nil {
		p.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// Healthy reports whether the connection is currently up.
func (p *EventPublisher) Healthy() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close flushes buffered messages before closing.
func (p *EventPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
