package signals

import (
	"context"
	"math"

	"call-intelligence/internal/transcription"
)

// Analyzer extracts a Bundle from a transcript.
//
// Analyze never fails: implementations degrade to a minimally valid Bundle.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, segments []transcription.Segment) Bundle
}

// Bundle is the closed-shape set of facts derived from a transcript.
// It is treated as immutable once returned by an Analyzer.
type Bundle struct {
	Sentiment Sentiment           `json:"sentiment"`
	Intent    Intent              `json:"intent"`
	Keywords  map[string][]string `json:"keywords"`
	Entities  []Entity            `json:"entities"`

	Segments []SegmentSentiment `json:"segment_sentiments,omitempty"`

	// Source names the analyzer that produced the bundle ("lexical", "model", "fallback").
	Source string `json:"source,omitempty"`
}

type Sentiment struct {
	Compound float64 `json:"compound"`
	Label    Label   `json:"label"`

	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`

	Explanation string `json:"explanation,omitempty"`
}

type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	default:
		return false
	}
}

// LabelFor maps a compound score onto a label with a symmetric threshold.
func LabelFor(compound, threshold float64) Label {
	switch {
	case compound >= threshold:
		return LabelPositive
	case compound <= -threshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

type Intent string

const (
	IntentDemoRequest          Intent = "demo_request"
	IntentComplaint            Intent = "complaint"
	IntentPricingInquiry       Intent = "pricing_inquiry"
	IntentCancellation         Intent = "cancellation"
	IntentChurnRisk            Intent = "churn_risk"
	IntentInformationRequest   Intent = "information_request"
	IntentInterestDeclaration  Intent = "interest_declaration"
	IntentObjection            Intent = "objection"
	IntentQualifiedLead        Intent = "qualified_lead"
	IntentCompetitorComparison Intent = "competitor_comparison"
	IntentUrgentFollowup       Intent = "urgent_followup"
	IntentGeneralInquiry       Intent = "general_inquiry"
	IntentOther                Intent = "other"
)

var intents = map[Intent]struct{}{
	IntentDemoRequest: {}, IntentComplaint: {}, IntentPricingInquiry: {}, IntentCancellation: {},
	IntentChurnRisk: {}, IntentInformationRequest: {}, IntentInterestDeclaration: {}, IntentObjection: {},
	IntentQualifiedLead: {}, IntentCompetitorComparison: {}, IntentUrgentFollowup: {},
	IntentGeneralInquiry: {}, IntentOther: {},
}

func (i Intent) Valid() bool {
	_, ok := intents[i]
	return ok
}

type Entity struct {
	Text  string      `json:"text"`
	Label EntityLabel `json:"label"`
}

type EntityLabel string

const (
	EntityPerson   EntityLabel = "PERSON"
	EntityOrg      EntityLabel = "ORG"
	EntityMoney    EntityLabel = "MONEY"
	EntityDate     EntityLabel = "DATE"
	EntityProduct  EntityLabel = "PRODUCT"
	EntityTimeline EntityLabel = "TIMELINE"
	EntityOther    EntityLabel = "OTHER"
)

func (l EntityLabel) Valid() bool {
	switch l {
	case EntityPerson, EntityOrg, EntityMoney, EntityDate, EntityProduct, EntityTimeline, EntityOther:
		return true
	default:
		return false
	}
}

// SegmentSentiment is the per-segment timeline entry.
type SegmentSentiment struct {
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Text     string  `json:"text"`
	Compound float64 `json:"compound"`
	Emotion  Emotion `json:"emotion_label"`
}

type Emotion string

const (
	EmotionHappy      Emotion = "happy"
	EmotionSatisfied  Emotion = "satisfied"
	EmotionNeutral    Emotion = "neutral"
	EmotionFrustrated Emotion = "frustrated"
	EmotionAngry      Emotion = "angry"
)

// EmotionFor buckets a segment compound score.
func EmotionFor(compound float64) Emotion {
	switch {
	case compound >= 0.5:
		return EmotionHappy
	case compound >= 0.05:
		return EmotionSatisfied
	case compound <= -0.5:
		return EmotionAngry
	case compound <= -0.05:
		return EmotionFrustrated
	default:
		return EmotionNeutral
	}
}

// Normalize enforces the bundle invariants in place and returns the bundle.
// threshold is used only when the label is missing or outside the closed set.
func (b Bundle) Normalize(threshold float64) Bundle {
	b.Sentiment.Compound = clamp(b.Sentiment.Compound, -1, 1)
	if !b.Sentiment.Label.Valid() {
		b.Sentiment.Label = LabelFor(b.Sentiment.Compound, threshold)
	}
	b.Sentiment.Positive = clamp(b.Sentiment.Positive, 0, 1)
	b.Sentiment.Neutral = clamp(b.Sentiment.Neutral, 0, 1)
	b.Sentiment.Negative = clamp(b.Sentiment.Negative, 0, 1)

	if b.Intent == "" {
		b.Intent = IntentGeneralInquiry
	} else if !b.Intent.Valid() {
		b.Intent = IntentOther
	}

	kw := make(map[string][]string, len(b.Keywords))
	for cat, words := range b.Keywords {
		if cat == "" || len(words) == 0 {
			continue
		}
		kw[cat] = words
	}
	b.Keywords = kw

	ents := make([]Entity, 0, len(b.Entities))
	for _, e := range b.Entities {
		if e.Text == "" {
			continue
		}
		if !e.Label.Valid() {
			e.Label = EntityOther
		}
		ents = append(ents, e)
	}
	b.Entities = ents
	return b
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
