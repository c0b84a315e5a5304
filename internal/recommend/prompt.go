package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"call-intelligence/internal/signals"
)

const systemPrompt = "You are an enterprise call intelligence AI. Analyze calls and provide structured business insights in JSON format only."

func buildPrompt(transcript string, b signals.Bundle, companyContext string) string {
	kw, _ := json.MarshalIndent(b.Keywords, "", "  ")
	ents, _ := json.MarshalIndent(b.Entities, "", "  ")

	var sb strings.Builder
	sb.WriteString("Analyze this sales/support call and return structured intelligence.\n")
	if companyContext != "" {
		sb.WriteString("\n" + companyContext + "\n")
	}
	fmt.Fprintf(&sb, `
CALL TRANSCRIPT:
%s

DETERMINISTIC NLP SIGNALS:
- Sentiment: %s (score: %.4f)
- Detected Intent: %s
- Keywords Found: %s
- Entities Extracted: %s

TASK:
Return strict JSON with the following structure:

{
  "call_summary_short": "One-sentence summary of the call",
  "call_summary_detailed": "Detailed paragraph summary with key points",
  "risk_level": "low | medium | high",
  "opportunity_level": "low | medium | high",
  "recommended_action": "Specific next action to take",
  "priority_score": <integer 0-100>,
  "reasoning": "Brief explanation of priority and recommendation"
}

RULES:
- risk_level: churn risk, complaint severity or dissatisfaction
- opportunity_level: sales potential, upsell chance or lead quality
- recommended_action: specific and actionable (e.g. "Schedule demo for next Tuesday", "Escalate to retention manager immediately")
- priority_score: 0 is lowest, 100 is highest urgency
- Churn risk means high priority
- Demo requests with positive sentiment mean high opportunity
- Complaints mean high risk and medium-high priority

Return only valid JSON. No markdown.
`, transcript, b.Sentiment.Label, b.Sentiment.Compound, b.Intent, kw, ents)
	return sb.String()
}
