package signals

import (
	"context"
	"testing"

	"call-intelligence/internal/transcription"
)

func TestLexicalAnalyzer_ChurnRisk(t *testing.T) {
	a := NewLexicalAnalyzer()
	b := a.Analyze(context.Background(), "I want to cancel, this is terrible.", nil)

	if b.Sentiment.Label != LabelNegative {
		t.Fatalf("expected negative label, got %q (compound %v)", b.Sentiment.Label, b.Sentiment.Compound)
	}
	if b.Intent != IntentChurnRisk {
		t.Fatalf("expected churn_risk, got %q", b.Intent)
	}
	if got := b.Keywords["cancellation"]; len(got) != 1 || got[0] != "cancel" {
		t.Fatalf("unexpected cancellation keywords: %v", got)
	}
}

func TestLexicalAnalyzer_DemoRequest(t *testing.T) {
	b := NewLexicalAnalyzer().Analyze(context.Background(), "Can you show me a demo next week?", nil)

	if b.Intent != IntentDemoRequest {
		t.Fatalf("expected demo_request, got %q", b.Intent)
	}
	if b.Sentiment.Label != LabelNeutral {
		t.Fatalf("expected neutral, got %q", b.Sentiment.Label)
	}
	if len(b.Entities) != 1 || b.Entities[0].Label != EntityDate || b.Entities[0].Text != "next week" {
		t.Fatalf("unexpected entities: %+v", b.Entities)
	}
}

func TestClassifyIntent_Order(t *testing.T) {
	cases := []struct {
		name  string
		kw    map[string][]string
		label Label
		want  Intent
	}{
		{"negative cancellation", map[string][]string{"cancellation": {"stop"}, "demo": {"demo"}}, LabelNegative, IntentChurnRisk},
		{"neutral cancellation falls through", map[string][]string{"cancellation": {"stop"}}, LabelNeutral, IntentGeneralInquiry},
		{"demo beats pricing", map[string][]string{"demo": {"demo"}, "pricing": {"price"}}, LabelPositive, IntentDemoRequest},
		{"negative with any keyword", map[string][]string{"decision_maker": {"team"}}, LabelNegative, IntentComplaint},
		{"positive interest", map[string][]string{"interest": {"need"}}, LabelPositive, IntentQualifiedLead},
		{"neutral interest", map[string][]string{"interest": {"need"}}, LabelNeutral, IntentGeneralInquiry},
		{"objection", map[string][]string{"objection": {"doubt"}, "competitor": {"versus"}}, LabelNeutral, IntentObjection},
		{"competitor", map[string][]string{"competitor": {"versus"}}, LabelNeutral, IntentCompetitorComparison},
		{"urgency", map[string][]string{"urgency": {"asap"}}, LabelNeutral, IntentUrgentFollowup},
		{"nothing", map[string][]string{}, LabelNeutral, IntentGeneralInquiry},
	}
	for _, tc := range cases {
		if got := ClassifyIntent(tc.kw, tc.label); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestScoreText_NegationAndBoost(t *testing.T) {
	good := ScoreText("good").Compound
	if good <= 0 {
		t.Fatalf("expected positive compound, got %v", good)
	}
	if v := ScoreText("not good").Compound; v >= 0 {
		t.Fatalf("expected negation to flip polarity, got %v", v)
	}
	if v := ScoreText("very good").Compound; v <= good {
		t.Fatalf("expected booster to raise score: %v <= %v", v, good)
	}
	if v := ScoreText("").Compound; v != 0 {
		t.Fatalf("expected 0 for empty text, got %v", v)
	}
}

func TestExtractEntities(t *testing.T) {
	ents := ExtractEntities("It costs $1,200.50 per seat, renew on 12/31/2025")
	if len(ents) != 2 {
		t.Fatalf("expected 2 entities, got %+v", ents)
	}
	if ents[0] != (Entity{Text: "$1,200.50", Label: EntityMoney}) {
		t.Fatalf("unexpected money entity: %+v", ents[0])
	}
	if ents[1] != (Entity{Text: "12/31/2025", Label: EntityDate}) {
		t.Fatalf("unexpected date entity: %+v", ents[1])
	}
	if got := ExtractEntities("nothing here"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestLexicalAnalyzer_Segments(t *testing.T) {
	segs := []transcription.Segment{
		{Start: 0, End: 2, Text: "This is great, I love it"},
		{Start: 2, End: 4, Text: "The invoice arrived"},
		{Start: 4, End: 6, Text: "This is terrible and I hate it"},
	}
	b := NewLexicalAnalyzer().Analyze(context.Background(), "mixed call", segs)
	if len(b.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(b.Segments))
	}
	if b.Segments[0].Emotion != EmotionHappy {
		t.Fatalf("expected happy, got %q", b.Segments[0].Emotion)
	}
	if b.Segments[1].Emotion != EmotionNeutral {
		t.Fatalf("expected neutral, got %q", b.Segments[1].Emotion)
	}
	if b.Segments[2].Emotion != EmotionAngry {
		t.Fatalf("expected angry, got %q", b.Segments[2].Emotion)
	}
}

func TestNormalize(t *testing.T) {
	b := Bundle{
		Sentiment: Sentiment{Compound: 4, Label: "meh"},
		Intent:    "objection_handling",
		Entities:  []Entity{{Text: "Acme", Label: "COMPANY"}, {Text: ""}},
	}.Normalize(LexicalThreshold)

	if b.Sentiment.Compound != 1 || b.Sentiment.Label != LabelPositive {
		t.Fatalf("unexpected sentiment: %+v", b.Sentiment)
	}
	if b.Intent != IntentOther {
		t.Fatalf("expected other, got %q", b.Intent)
	}
	if b.Keywords == nil {
		t.Fatalf("expected non-nil keywords")
	}
	if len(b.Entities) != 1 || b.Entities[0].Label != EntityOther {
		t.Fatalf("unexpected entities: %+v", b.Entities)
	}
}
