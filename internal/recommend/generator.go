package recommend

import (
	"context"
	"encoding/json"
	"strings"

	"call-intelligence/internal/llm"
	"call-intelligence/internal/signals"
	"call-intelligence/pkg/logger"
)

type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Generator asks the model for a Recommendation grounded on the signals.
type Generator struct {
	llm         Completer
	temperature float64
	maxTokens   int
}

func NewGenerator(c Completer) *Generator {
	return &Generator{llm: c, temperature: 0.2, maxTokens: 800}
}

// Generate returns a defaulted Recommendation or a *GenerationError.
func (g *Generator) Generate(ctx context.Context, transcript string, b signals.Bundle, companyContext string) (Recommendation, error) {
	log := logger.From(ctx)
	log.Info("generating recommendation", "intent", b.Intent)

	out, err := g.llm.Complete(ctx, llm.ChatRequest{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: buildPrompt(transcript, b, companyContext)}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		JSON:        true,
	})
	if err != nil {
		log.Error("recommendation llm call failed", "err", err)
		return Recommendation{}, &GenerationError{Kind: KindLLMFailed, Details: err.Error(), Err: err}
	}

	rec, err := Parse(out)
	if err != nil {
		log.Error("recommendation json parse failed", "err", err)
		return Recommendation{}, &GenerationError{Kind: KindJSONParse, Details: err.Error(), Raw: out, Err: err}
	}
	log.Info("recommendation generated", "priority", rec.PriorityScore.Value, "risk", rec.RiskLevel)
	return rec, nil
}

// Parse decodes model output, filling missing text fields with Placeholder
// and an unusable priority with DefaultPriority.
func Parse(raw string) (Recommendation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Recommendation{}, err
	}

	var r Recommendation
	r.CallSummaryShort = text(fields, "call_summary_short")
	r.CallSummaryDetailed = text(fields, "call_summary_detailed")
	r.RiskLevel = text(fields, "risk_level")
	r.OpportunityLevel = text(fields, "opportunity_level")
	r.RecommendedAction = text(fields, "recommended_action")
	r.Reasoning = text(fields, "reasoning")

	if v, ok := fields["priority_score"]; ok {
		_ = r.PriorityScore.UnmarshalJSON(v)
	}
	if !r.PriorityScore.Valid {
		r.PriorityScore = NewScore(DefaultPriority)
	}
	return r, nil
}

func text(fields map[string]json.RawMessage, key string) string {
	v, ok := fields[key]
	if !ok || strings.TrimSpace(string(v)) == "null" {
		return Placeholder
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		// non-string value; keep its literal form
		s = strings.TrimSpace(string(v))
	}
	return s
}
