package decision

import (
	"testing"

	"call-intelligence/internal/signals"
)

func TestRules_NoOpWhenConditionFails(t *testing.T) {
	w := Working{Intent: signals.IntentGeneralInquiry, Risk: LevelLow, Opportunity: LevelLow, Action: "keep", Priority: 40}
	for _, r := range DefaultRules() {
		got := r.Apply(w)
		if got.Action != "keep" || got.Priority != 40 || got.Escalation || got.Urgent || got.Revenue || len(got.RulesApplied) != 0 {
			t.Fatalf("%s fired unexpectedly: %+v", r.ID, got)
		}
	}
}

func TestRevenueOpportunity_RequiresLowRisk(t *testing.T) {
	w := RevenueOpportunity(Working{Opportunity: LevelHigh, Risk: LevelMedium})
	if w.Revenue {
		t.Fatalf("medium risk must not flag revenue")
	}
	w = RevenueOpportunity(Working{Opportunity: LevelHigh, Risk: LevelLow})
	if !w.Revenue || len(w.RulesApplied) != 1 {
		t.Fatalf("expected revenue flag: %+v", w)
	}
}

func TestRecord_DoesNotAlias(t *testing.T) {
	base := Working{RulesApplied: make([]string, 1, 4)}
	base.RulesApplied[0] = "first"

	a := base.record("a")
	b := base.record("b")
	if a.RulesApplied[1] != "a" || b.RulesApplied[1] != "b" {
		t.Fatalf("record shared backing array: %q %q", a.RulesApplied, b.RulesApplied)
	}
	if len(base.RulesApplied) != 1 {
		t.Fatalf("input mutated: %q", base.RulesApplied)
	}
}

func TestChurnRiskFloor_AuditBeforeAfter(t *testing.T) {
	w := ChurnRiskFloor(Working{Intent: signals.IntentChurnRisk, Priority: 95})
	if w.Priority != 95 || w.RulesApplied[0] != "RULE_2: Churn risk - priority elevated from 95 to 95" {
		t.Fatalf("unexpected: %+v", w)
	}
}
