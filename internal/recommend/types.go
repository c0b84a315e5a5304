package recommend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholder is written into string fields the model left out.
const Placeholder = "N/A"

// DefaultPriority replaces a priority the model did not give in usable form.
const DefaultPriority = 50

// Recommendation is the model's suggestion. Every field is untrusted.
type Recommendation struct {
	CallSummaryShort    string `json:"call_summary_short"`
	CallSummaryDetailed string `json:"call_summary_detailed"`
	RiskLevel           string `json:"risk_level"`
	OpportunityLevel    string `json:"opportunity_level"`
	RecommendedAction   string `json:"recommended_action"`
	PriorityScore       Score  `json:"priority_score"`
	Reasoning           string `json:"reasoning"`
}

// Score is a priority as the model sent it. It accepts a JSON number or a
// numeric string; anything else decodes as an invalid score instead of
// failing the surrounding document.
type Score struct {
	Value int
	Valid bool
}

func NewScore(v int) Score { return Score{Value: v, Valid: true} }

func (s *Score) UnmarshalJSON(b []byte) error {
	*s = Score{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		s.set(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			s.set(f)
		}
	}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

const scoreBound = 1e6

func (s *Score) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	// Bound before converting; float-to-int overflow is implementation defined.
	s.Value = int(math.Round(min(max(f, -scoreBound), scoreBound)))
	s.Valid = true
}
