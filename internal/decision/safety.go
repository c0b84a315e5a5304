package decision

import (
	"fmt"
	"strings"
)

var riskyKeywords = []string{"discount", "refund", "compensation", "free", "waive"}

type SafetyReport struct {
	IsSafe        bool     `json:"is_safe"`
	Warnings      []string `json:"warnings"`
	Modifications []string `json:"modifications"`
}

// ValidateActionSafety flags actions that need human approval before they
// are executed. Risky wording only warns; any "$" or "%" makes the action
// unsafe. Evaluate does not call this.
func ValidateActionSafety(action string) SafetyReport {
	r := SafetyReport{IsSafe: true, Warnings: []string{}, Modifications: []string{}}

	lower := strings.ToLower(action)
	for _, kw := range riskyKeywords {
		if strings.Contains(lower, kw) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Action contains potentially risky keyword: '%s'", kw))
		}
	}
	if strings.ContainsAny(action, "$%") {
		r.Warnings = append(r.Warnings, "Action contains monetary values - requires approval")
		r.IsSafe = false
	}
	return r
}
