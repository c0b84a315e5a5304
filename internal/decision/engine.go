package decision

import (
	"strings"

	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
)

// Engine reconciles a signal bundle with a model recommendation.
//
// Rules run in slice order over a single Working value. Every applicable
// rule fires and later rules observe the effects of earlier ones.
//
// Evaluate performs no I/O and keeps no state; an Engine is safe for
// concurrent use as long as Rules is not modified.
type Engine struct {
	Rules []Rule
}

// New returns an engine with the standard governance rules.
func New() *Engine {
	return &Engine{Rules: DefaultRules()}
}

// Evaluate never fails; malformed input is absorbed by defaulting.
func (e *Engine) Evaluate(b signals.Bundle, rec recommend.Recommendation) Decision {
	w := initial(b, rec)
	for _, r := range e.Rules {
		w = r.Apply(w)
	}

	applied := w.RulesApplied
	if applied == nil {
		applied = []string{}
	}
	return Decision{
		FinalAction:        w.Action,
		PriorityScore:      w.Priority,
		PriorityLevel:      PriorityLevel(w.Priority),
		RiskLevel:          w.Risk,
		OpportunityLevel:   w.Opportunity,
		EscalationRequired: w.Escalation,
		UrgentFlag:         w.Urgent,
		RevenueOpportunity: w.Revenue,
		ConfidenceScore:    Confidence(b),
		Reasoning:          strings.TrimSpace(rec.Reasoning),
		RulesApplied:       applied,
		Intent:             w.Intent,
		SentimentLabel:     w.Sentiment,
	}
}

// Working is the in-progress decision threaded through the rules.
type Working struct {
	Intent    signals.Intent
	Sentiment signals.Label

	Risk        Level
	Opportunity Level
	Action      string
	Priority    int

	Escalation bool
	Urgent     bool
	Revenue    bool

	RulesApplied []string
}

// record appends an audit entry without sharing the backing array with w.
func (w Working) record(entry string) Working {
	out := make([]string, len(w.RulesApplied), len(w.RulesApplied)+1)
	copy(out, w.RulesApplied)
	w.RulesApplied = append(out, entry)
	return w
}

func initial(b signals.Bundle, rec recommend.Recommendation) Working {
	intent := signals.Intent(strings.TrimSpace(string(b.Intent)))
	if intent == "" {
		intent = signals.IntentGeneralInquiry
	}
	label := b.Sentiment.Label
	if !label.Valid() {
		label = signals.LabelNeutral
	}
	return Working{
		Intent:      intent,
		Sentiment:   label,
		Risk:        level(rec.RiskLevel),
		Opportunity: level(rec.OpportunityLevel),
		Action:      action(rec.RecommendedAction),
		Priority:    priority(rec.PriorityScore),
	}
}

func level(s string) Level {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelLow, LevelMedium, LevelHigh:
		return l
	default:
		return LevelLow
	}
}

func action(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, recommend.Placeholder) {
		return ActionReview
	}
	return s
}

func priority(s recommend.Score) int {
	if !s.Valid {
		return DefaultPriority
	}
	return min(max(s.Value, 0), 100)
}
