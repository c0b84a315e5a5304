package decision

import (
	"testing"

	"call-intelligence/internal/signals"
)

func TestConfidence_Monotonic(t *testing.T) {
	b := signals.Bundle{}
	prev := Confidence(b)
	if prev != 70 {
		t.Fatalf("expected base 70, got %d", prev)
	}

	steps := []func(*signals.Bundle){
		func(b *signals.Bundle) { b.Sentiment.Compound = -0.51 },
		func(b *signals.Bundle) { b.Keywords = map[string][]string{"pricing": {"price"}} },
		func(b *signals.Bundle) { b.Entities = []signals.Entity{{Text: "$10", Label: signals.EntityMoney}} },
	}
	for i, step := range steps {
		step(&b)
		c := Confidence(b)
		if c < prev || c > 100 {
			t.Fatalf("step %d: confidence %d (prev %d)", i, c, prev)
		}
		prev = c
	}
	if prev != 100 {
		t.Fatalf("expected 100 with all signals, got %d", prev)
	}
}

func TestConfidence_StrongSentimentIsStrict(t *testing.T) {
	if c := Confidence(signals.Bundle{Sentiment: signals.Sentiment{Compound: 0.5}}); c != 70 {
		t.Fatalf("|0.5| is not strong, got %d", c)
	}
}
