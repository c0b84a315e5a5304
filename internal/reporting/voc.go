package reporting

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/signals"
)

const (
	wordCloudSize  = 50
	maxRanked      = 10
	maxPainPoints  = 5
	painPointShare = 0.3
)

// VOCInsights aggregates voice-of-customer patterns across a workspace.
type VOCInsights struct {
	WorkspaceID        string              `json:"workspace_id"`
	WordCloud          map[string]int      `json:"word_cloud"`
	TopTopics          []Topic             `json:"top_topics"`
	FeatureRequests    []FeatureRequest    `json:"feature_requests"`
	CompetitorMentions []CompetitorMention `json:"competitor_mentions"`
	ProductFeedback    map[string]int      `json:"product_feedback"`
	PainPoints         []string            `json:"common_pain_points"`
	TotalCalls         int                 `json:"total_calls_analyzed"`
	From               *time.Time          `json:"from,omitempty"`
	To                 *time.Time          `json:"to,omitempty"`
}

type FeatureRequest struct {
	Request string `json:"request"`
	Count   int    `json:"count"`
}

type CompetitorMention struct {
	Competitor string `json:"competitor"`
	Mentions   int    `json:"mentions"`
}

var wordRe = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopwords = toSet(
	"the", "and", "but", "for", "with", "from", "was", "are", "were", "been",
	"have", "has", "had", "does", "did", "will", "would", "could", "should",
	"may", "might", "must", "can", "you", "she", "they", "your", "his", "her",
	"our", "their", "this", "that", "these", "those", "want", "need", "like",
	"get", "dont", "cant", "wont", "wouldnt", "couldnt", "not", "just", "about",
)

// featurePhrases maps a transcript phrase to the request it signals.
var featurePhrases = []struct{ phrase, request string }{
	{"mobile app", "mobile app"},
	{"api", "api access"},
	{"integration", "integration support"},
	{"report", "better reporting"},
	{"export", "export functionality"},
	{"feature request", "feature request"},
	{"dark mode", "dark mode"},
}

var featurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`integration with ([a-z]+)`),
	regexp.MustCompile(`wish (?:it|you) had ([a-z]+(?: [a-z]+)?)`),
}

var competitors = []string{
	"salesforce", "hubspot", "zendesk", "freshworks", "intercom",
	"zoho", "pipedrive", "monday", "asana", "slack",
}

// Insights computes VOC insights over every call of a workspace.
func (s *Service) Insights(ctx context.Context, workspaceID string) (VOCInsights, error) {
	if workspaceID == "" {
		return VOCInsights{}, ErrInvalidRequest
	}
	if s.calls == nil {
		return VOCInsights{}, errors.New("reporting: call source not configured")
	}
	rows, err := s.calls.ListAll(ctx, workspaceID)
	if err != nil {
		return VOCInsights{}, err
	}
	return buildInsights(workspaceID, rows), nil
}

func buildInsights(workspaceID string, rows []calls.Call) VOCInsights {
	out := VOCInsights{
		WorkspaceID:        workspaceID,
		WordCloud:          map[string]int{},
		TopTopics:          []Topic{},
		FeatureRequests:    []FeatureRequest{},
		CompetitorMentions: []CompetitorMention{},
		ProductFeedback:    map[string]int{string(signals.LabelPositive): 0, string(signals.LabelNeutral): 0, string(signals.LabelNegative): 0},
		PainPoints:         []string{},
		TotalCalls:         len(rows),
	}
	if len(rows) == 0 {
		return out
	}

	words := map[string]int{}
	topics := map[string]int{}
	keywords := map[string][]string{}
	requests := map[string]int{}
	mentions := map[string]int{}
	negative := 0

	for _, c := range rows {
		text := strings.ToLower(c.Transcript)
		for _, w := range wordRe.FindAllString(text, -1) {
			if !stopwords[w] {
				words[w]++
			}
		}
		for cat, ws := range c.Signals.Keywords {
			topics[cat] += len(ws)
			keywords[cat] = append(keywords[cat], ws...)
		}
		label := c.Signals.Sentiment.Label
		if !label.Valid() {
			label = signals.LabelNeutral
		}
		out.ProductFeedback[string(label)]++
		if label == signals.LabelNegative {
			negative++
		}
		for _, r := range featureRequests(text) {
			requests[r]++
		}
		for _, name := range competitors {
			if strings.Contains(text, name) {
				mentions[name]++
			}
		}

		at := c.CreatedAt
		if out.From == nil || at.Before(*out.From) {
			out.From = &at
		}
		if out.To == nil || at.After(*out.To) {
			out.To = &at
		}
	}

	for _, e := range ranked(words, wordCloudSize) {
		out.WordCloud[e.key] = e.n
	}
	out.TopTopics = topTopics(topics, len(rows))
	for _, e := range ranked(requests, maxRanked) {
		out.FeatureRequests = append(out.FeatureRequests, FeatureRequest{Request: e.key, Count: e.n})
	}
	for _, e := range ranked(mentions, maxRanked) {
		out.CompetitorMentions = append(out.CompetitorMentions, CompetitorMention{Competitor: titleCase(e.key), Mentions: e.n})
	}
	out.PainPoints = painPoints(keywords, negative, len(rows))
	return out
}

// featureRequests lists the distinct requests found in one lower-cased
// transcript.
func featureRequests(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(r string) {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, p := range featurePhrases {
		if strings.Contains(text, p.phrase) {
			add(p.request)
		}
	}
	for _, re := range featurePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			add(strings.TrimSpace(m[0]))
		}
	}
	return out
}

func painPoints(keywords map[string][]string, negative, total int) []string {
	var out []string
	if len(keywords["complaint"]) > 0 {
		out = append(out, "Customer complaints detected")
	}
	if len(keywords["cancellation"]) > 0 {
		out = append(out, "Cancellation requests")
	}
	if float64(negative) > float64(total)*painPointShare {
		out = append(out, fmt.Sprintf("High negative sentiment (%d calls)", negative))
	}
	if float64(len(keywords["pricing"])) > float64(total)*painPointShare {
		out = append(out, "Frequent pricing concerns")
	}
	for _, w := range keywords["complaint"] {
		if strings.Contains(w, "technical") || strings.Contains(w, "bug") || strings.Contains(w, "error") {
			out = append(out, "Technical issues reported")
			break
		}
	}
	if out == nil {
		return []string{}
	}
	if len(out) > maxPainPoints {
		out = out[:maxPainPoints]
	}
	return out
}

type count struct {
	key string
	n   int
}

// ranked returns the top n entries by count, ties broken by key.
func ranked(m map[string]int, n int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
