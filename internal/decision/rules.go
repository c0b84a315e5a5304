package decision

import (
	"fmt"
	"strings"

	"call-intelligence/internal/signals"
)

// Rule is one governance step. Apply must be pure: it returns the next
// Working value and never touches anything else.
type Rule struct {
	ID    string
	Apply func(Working) Working
}

// DefaultRules returns the governance rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "RULE_1", Apply: HighRiskEscalation},
		{ID: "RULE_2", Apply: ChurnRiskFloor},
		{ID: "RULE_3", Apply: RevenueOpportunity},
		{ID: "RULE_4", Apply: UrgentFlag},
		{ID: "RULE_5", Apply: ComplaintRetention},
		{ID: "RULE_6", Apply: DemoFastTrack},
	}
}

func HighRiskEscalation(w Working) Working {
	if w.Risk != LevelHigh {
		return w
	}
	w.Action = ActionEscalate
	w.Escalation = true
	return w.record("RULE_1: High risk detected - forced escalation")
}

func ChurnRiskFloor(w Working) Working {
	if w.Intent != signals.IntentChurnRisk {
		return w
	}
	before := w.Priority
	w.Priority = max(w.Priority, ChurnFloor)
	w.Escalation = true
	return w.record(fmt.Sprintf("RULE_2: Churn risk - priority elevated from %d to %d", before, w.Priority))
}

func RevenueOpportunity(w Working) Working {
	if w.Opportunity != LevelHigh || w.Risk != LevelLow {
		return w
	}
	w.Revenue = true
	return w.record("RULE_3: High opportunity + low risk = revenue opportunity flagged")
}

func UrgentFlag(w Working) Working {
	if w.Priority <= UrgentAbove {
		return w
	}
	w.Urgent = true
	return w.record(fmt.Sprintf("RULE_4: Priority %d > %d - urgent flag set", w.Priority, UrgentAbove))
}

func ComplaintRetention(w Working) Working {
	if w.Intent != signals.IntentComplaint || w.Risk != LevelHigh {
		return w
	}
	w.Action = ActionRetention
	w.Escalation = true
	return w.record("RULE_5: Complaint + high risk - retention routing")
}

// DemoFastTrack keeps an action that already schedules a demo but records
// the rule either way.
func DemoFastTrack(w Working) Working {
	if w.Intent != signals.IntentDemoRequest || w.Opportunity != LevelHigh {
		return w
	}
	if !strings.Contains(strings.ToLower(w.Action), "schedule demo") {
		w.Action = ActionFastTrack
	}
	return w.record("RULE_6: High-value demo request - fast-track enabled")
}
