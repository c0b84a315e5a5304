package reporting

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

const maxTopics = 10

// CallSource lists every call of a workspace. calls.Service satisfies it.
//
// Implementations must enforce workspace filtering.
type CallSource interface {
	ListAll(ctx context.Context, workspaceID string) ([]calls.Call, error)
}

type Service struct {
	calls CallSource
	clock func() time.Time
}

func NewService(src CallSource) *Service { return &Service{calls: src, clock: time.Now} }

// Dashboard aggregates KPIs over all calls of a workspace. High risk and
// revenue counts use the governed decision, not the raw model output.
func (s *Service) Dashboard(ctx context.Context, workspaceID string) (DashboardMetrics, error) {
	if workspaceID == "" {
		return DashboardMetrics{}, ErrInvalidRequest
	}
	if s.calls == nil {
		return DashboardMetrics{}, errors.New("reporting: call source not configured")
	}
	rows, err := s.calls.ListAll(ctx, workspaceID)
	if err != nil {
		return DashboardMetrics{}, err
	}

	out := DashboardMetrics{
		WorkspaceID:           workspaceID,
		SentimentDistribution: map[string]int{},
		StatusDistribution:    map[string]int{},
		IntentDistribution:    map[string]int{},
		TopTopics:             []Topic{},
		LastUpdated:           s.clock().UTC(),
	}
	var prioritySum, confidenceSum int
	topics := map[string]int{}

	for _, c := range rows {
		d := c.Decision
		out.TotalCalls++
		prioritySum += d.PriorityScore
		confidenceSum += d.ConfidenceScore

		if d.RiskLevel == decision.LevelHigh {
			out.HighRiskCalls++
		}
		if d.OpportunityLevel == decision.LevelHigh {
			out.RevenueOpportunities++
		}
		if d.EscalationRequired {
			out.EscalatedCalls++
		}
		if d.UrgentFlag {
			out.UrgentCalls++
		}

		out.SentimentDistribution[string(c.Signals.Sentiment.Label)]++
		out.StatusDistribution[string(c.Status)]++
		out.IntentDistribution[string(c.Signals.Intent)]++
		for cat, words := range c.Signals.Keywords {
			topics[cat] += len(words)
		}
	}
	if out.TotalCalls > 0 {
		out.AvgPriorityScore = round2(float64(prioritySum) / float64(out.TotalCalls))
		out.AvgConfidenceScore = round2(float64(confidenceSum) / float64(out.TotalCalls))
	}
	out.TopTopics = topTopics(topics, out.TotalCalls)
	return out, nil
}

func topTopics(counts map[string]int, total int) []Topic {
	out := make([]Topic, 0, len(counts))
	for t, n := range counts {
		out = append(out, Topic{Topic: t, Mentions: n, Percentage: math.Round(float64(n)/float64(max(total, 1))*1000) / 10})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > maxTopics {
		out = out[:maxTopics]
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
