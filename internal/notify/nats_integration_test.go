//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_DecisionRecordedIsDelivered(t *testing.T) {
	url := skipWithoutNATS(t)

	p, err := NewEventPublisher(url, os.Getenv("NATS_TOKEN"), quietLogger())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer p.Close()

	sub, err := nats.Connect(url, nats.Token(os.Getenv("NATS_TOKEN")))
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer sub.Close()

	received := make(chan DecisionEvent, 1)
	s, err := sub.Subscribe(SubjectDecisionRecorded, func(msg *nats.Msg) {
		var ev DecisionEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			received <- ev
		}
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	p.CallRecorded(context.Background(), escalatedCall())

	select {
	case ev := <-received:
		if ev.CallID != "call-1" || !ev.Decision.EscalationRequired {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decision event")
	}
}
