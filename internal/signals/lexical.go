package signals

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"

	"call-intelligence/internal/transcription"
)

// LexicalThreshold is the compound cut-off used by LexicalAnalyzer labels.
const LexicalThreshold = 0.05

const (
	normalizeAlpha = 15.0
	negationScalar = -0.74
)

var (
	moneyRe = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)
	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:next|last)\s+(?:week|month|year|monday|tuesday|wednesday|thursday|friday)\b`),
		regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday)\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	}
)

// LexicalAnalyzer is the deterministic extractor: lexicon sentiment, keyword
// dictionary, regex entities and rule-ordered intent classification.
type LexicalAnalyzer struct{}

func NewLexicalAnalyzer() *LexicalAnalyzer { return &LexicalAnalyzer{} }

func (a *LexicalAnalyzer) Analyze(_ context.Context, transcript string, segments []transcription.Segment) Bundle {
	s := ScoreText(transcript)
	s.Label = LabelFor(s.Compound, LexicalThreshold)

	kw := DetectKeywords(transcript)
	b := Bundle{
		Sentiment: s,
		Keywords:  kw,
		Entities:  ExtractEntities(transcript),
		Intent:    ClassifyIntent(kw, s.Label),
		Segments:  scoreSegments(segments),
		Source:    "lexical",
	}
	return b.Normalize(LexicalThreshold)
}

// ScoreText computes a compound score in [-1,1] plus pos/neu/neg proportions.
// The label is left empty for the caller to assign.
func ScoreText(text string) Sentiment {
	tokens := tokenize(text)
	var sum, pos, neg float64
	var neutral int

	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			neutral++
			continue
		}
		// boosters and negations look back up to three tokens
		for j := 1; j <= 3 && i-j >= 0; j++ {
			prev := tokens[i-j]
			if b, ok := boosters[prev]; ok && j == 1 {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
			if _, ok := negations[prev]; ok {
				v *= negationScalar
				break
			}
		}
		sum += v
		if v > 0 {
			pos += v + 1
		} else if v < 0 {
			neg += v - 1
		} else {
			neutral++
		}
	}

	out := Sentiment{Neutral: 1}
	if sum != 0 {
		out.Compound = round4(sum / math.Sqrt(sum*sum+normalizeAlpha))
	}
	total := pos + math.Abs(neg) + float64(neutral)
	if total > 0 {
		out.Positive = round4(pos / total)
		out.Negative = round4(math.Abs(neg) / total)
		out.Neutral = round4(float64(neutral) / total)
	}
	return out
}

// DetectKeywords returns matched dictionary words per category. Categories
// without matches are omitted.
func DetectKeywords(text string) map[string][]string {
	lower := strings.ToLower(text)
	out := make(map[string][]string)
	for _, c := range keywordCategories {
		var hits []string
		for _, w := range c.Words {
			if strings.Contains(lower, w) {
				hits = append(hits, w)
			}
		}
		if len(hits) > 0 {
			out[c.Category] = hits
		}
	}
	return out
}

// ExtractEntities finds monetary amounts and date expressions.
func ExtractEntities(text string) []Entity {
	out := []Entity{}
	for _, m := range moneyRe.FindAllString(text, -1) {
		out = append(out, Entity{Text: m, Label: EntityMoney})
	}
	for _, re := range dateRes {
		for _, m := range re.FindAllString(text, -1) {
			out = append(out, Entity{Text: m, Label: EntityDate})
		}
	}
	return out
}

// ClassifyIntent applies the ordered intent rules. The first match wins.
func ClassifyIntent(kw map[string][]string, label Label) Intent {
	has := func(cat string) bool { return len(kw[cat]) > 0 }

	switch {
	case label == LabelNegative && has("cancellation"):
		return IntentChurnRisk
	case has("demo"):
		return IntentDemoRequest
	case has("pricing"):
		return IntentPricingInquiry
	case has("complaint"), label == LabelNegative && len(kw) > 0:
		return IntentComplaint
	case has("interest") && label == LabelPositive:
		return IntentQualifiedLead
	case has("objection"):
		return IntentObjection
	case has("competitor"):
		return IntentCompetitorComparison
	case has("urgency"):
		return IntentUrgentFollowup
	default:
		return IntentGeneralInquiry
	}
}

func scoreSegments(segs []transcription.Segment) []SegmentSentiment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]SegmentSentiment, 0, len(segs))
	for _, seg := range segs {
		s := ScoreText(seg.Text)
		out = append(out, SegmentSentiment{
			Start:    seg.Start,
			End:      seg.End,
			Text:     seg.Text,
			Compound: s.Compound,
			Emotion:  EmotionFor(s.Compound),
		})
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
