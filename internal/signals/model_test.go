package signals

import (
	"context"
	"errors"
	"strings"
	"testing"

	"call-intelligence/internal/llm"
)

type stubCompleter struct {
	out  string
	err  error
	last llm.ChatRequest
}

func (s *stubCompleter) Complete(_ context.Context, req llm.ChatRequest) (string, error) {
	s.last = req
	return s.out, s.err
}

func TestModelAnalyzer_Normalizes(t *testing.T) {
	c := &stubCompleter{out: `{
		"sentiment": {"compound": 0.1, "sentiment_label": "", "explanation": "calm"},
		"intent": "demo_request",
		"keywords": {"demo": ["demo"]},
		"entities": [{"text": "Acme", "label": "COMPANY"}, {"text": "next week", "label": "TIMELINE"}],
		"extra": true
	}`}
	b := NewModelAnalyzer(c).Analyze(context.Background(), "show me a demo", nil)

	if !c.last.JSON {
		t.Fatalf("expected JSON mode request")
	}
	if b.Source != "model" {
		t.Fatalf("expected model source, got %q", b.Source)
	}
	if b.Sentiment.Label != LabelNeutral {
		t.Fatalf("expected neutral under 0.2 threshold, got %q", b.Sentiment.Label)
	}
	if b.Intent != IntentDemoRequest {
		t.Fatalf("unexpected intent %q", b.Intent)
	}
	if b.Entities[0].Label != EntityOrg || b.Entities[1].Label != EntityTimeline {
		t.Fatalf("unexpected entity labels: %+v", b.Entities)
	}
}

func TestModelAnalyzer_ClampsAndClosesIntent(t *testing.T) {
	c := &stubCompleter{out: `{"sentiment": {"compound": -3}, "intent": "rant", "keywords": "oops", "entities": {}}`}
	b := NewModelAnalyzer(c).Analyze(context.Background(), "x", nil)

	if b.Sentiment.Compound != -1 || b.Sentiment.Label != LabelNegative {
		t.Fatalf("unexpected sentiment %+v", b.Sentiment)
	}
	if b.Intent != IntentOther {
		t.Fatalf("expected other, got %q", b.Intent)
	}
	if b.Keywords == nil || len(b.Keywords) != 0 {
		t.Fatalf("expected empty keywords, got %v", b.Keywords)
	}
	if b.Entities == nil || len(b.Entities) != 0 {
		t.Fatalf("expected empty entities, got %v", b.Entities)
	}
}

func TestModelAnalyzer_FallsBackOnError(t *testing.T) {
	for _, c := range []*stubCompleter{
		{err: errors.New("boom")},
		{out: "not json"},
	} {
		b := NewModelAnalyzer(c).Analyze(context.Background(), "I want to cancel, this is terrible.", nil)
		if b.Source != "fallback" {
			t.Fatalf("expected fallback source, got %q", b.Source)
		}
		if b.Intent != IntentChurnRisk {
			t.Fatalf("expected lexical churn_risk, got %q", b.Intent)
		}
	}
}

func TestModelAnalyzer_PromptCarriesLanguage(t *testing.T) {
	c := &stubCompleter{out: `{}`}
	NewModelAnalyzer(c).AnalyzeLanguage(context.Background(), "ta", "வணக்கம்", nil)

	if len(c.last.Messages) != 1 || !strings.Contains(c.last.Messages[0].Content, "Tamil (ta)") {
		t.Fatalf("expected Tamil in prompt")
	}
}
