package decision

import (
	"math"

	"call-intelligence/internal/signals"
)

const (
	baseConfidence  = 70
	signalBonus     = 10
	strongSentiment = 0.5
	maxConfidence   = 100
)

// Confidence scores independent evidentiary support for a decision. It
// looks only at the deterministic signals, never at the model's output.
func Confidence(b signals.Bundle) int {
	c := baseConfidence
	if math.Abs(b.Sentiment.Compound) > strongSentiment {
		c += signalBonus
	}
	if len(b.Keywords) > 0 {
		c += signalBonus
	}
	if len(b.Entities) > 0 {
		c += signalBonus
	}
	return min(c, maxConfidence)
}
