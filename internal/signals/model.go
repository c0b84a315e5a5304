package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"call-intelligence/internal/llm"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"
)

// ModelThreshold is the compound cut-off the model is asked to follow and the
// one used when its label has to be re-derived.
const ModelThreshold = 0.2

// Completer is the slice of llm.Client the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (string, error)
}

// LanguageAnalyzer is implemented by analyzers that can use the detected
// transcript language.
type LanguageAnalyzer interface {
	AnalyzeLanguage(ctx context.Context, language, transcript string, segments []transcription.Segment) Bundle
}

// ModelAnalyzer asks an LLM for the bundle and falls back to Fallback on any
// failure. There is exactly one fallback layer.
type ModelAnalyzer struct {
	LLM      Completer
	Fallback Analyzer
}

func NewModelAnalyzer(c Completer) *ModelAnalyzer {
	return &ModelAnalyzer{LLM: c, Fallback: NewLexicalAnalyzer()}
}

func (a *ModelAnalyzer) Analyze(ctx context.Context, transcript string, segments []transcription.Segment) Bundle {
	return a.AnalyzeLanguage(ctx, "en", transcript, segments)
}

func (a *ModelAnalyzer) AnalyzeLanguage(ctx context.Context, language, transcript string, segments []transcription.Segment) Bundle {
	log := logger.From(ctx)

	b, err := a.analyze(ctx, language, transcript)
	if err != nil {
		log.Warn("model analysis failed, using lexical fallback", "err", err)
		fb := a.Fallback.Analyze(ctx, transcript, segments)
		fb.Source = "fallback"
		return fb
	}
	b.Segments = scoreSegments(segments)
	log.Debug("model analysis complete", "label", b.Sentiment.Label, "intent", b.Intent)
	return b
}

func (a *ModelAnalyzer) analyze(ctx context.Context, language, transcript string) (Bundle, error) {
	if a.LLM == nil {
		return Bundle{}, fmt.Errorf("no model configured")
	}
	name := languageName(language)
	out, err := a.LLM.Complete(ctx, llm.ChatRequest{
		System:      analysisSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: buildAnalysisPrompt(transcript, language, name)}},
		Temperature: 0.2,
		MaxTokens:   1500,
		JSON:        true,
	})
	if err != nil {
		return Bundle{}, fmt.Errorf("complete: %w", err)
	}
	return parseModelBundle(out)
}

// parseModelBundle decodes the model JSON field by field; a malformed field
// is replaced by its zero value rather than failing the whole bundle.
func parseModelBundle(raw string) (Bundle, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return Bundle{}, fmt.Errorf("decode model output: %w", err)
	}

	var b Bundle
	var sent struct {
		Compound    any    `json:"compound"`
		Label       string `json:"sentiment_label"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal(top["sentiment"], &sent); err == nil {
		if f, ok := sent.Compound.(float64); ok {
			b.Sentiment.Compound = f
		}
		b.Sentiment.Label = Label(strings.ToLower(strings.TrimSpace(sent.Label)))
		b.Sentiment.Explanation = sent.Explanation
	} else {
		b.Sentiment.Explanation = "No sentiment detected"
	}

	var intent string
	if err := json.Unmarshal(top["intent"], &intent); err == nil && intent != "" {
		b.Intent = Intent(strings.ToLower(strings.TrimSpace(intent)))
	} else {
		b.Intent = IntentOther
	}

	var kw map[string][]string
	if err := json.Unmarshal(top["keywords"], &kw); err == nil {
		b.Keywords = kw
	}

	var ents []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(top["entities"], &ents); err == nil {
		for _, e := range ents {
			b.Entities = append(b.Entities, Entity{Text: e.Text, Label: entityLabel(e.Label)})
		}
	}

	b = b.Normalize(ModelThreshold)
	c := b.Sentiment.Compound
	b.Sentiment.Positive = math.Max(0, c)
	b.Sentiment.Negative = math.Max(0, -c)
	if math.Abs(c) < ModelThreshold {
		b.Sentiment.Neutral = 1
	}
	b.Source = "model"
	return b, nil
}

func entityLabel(s string) EntityLabel {
	switch l := EntityLabel(strings.ToUpper(strings.TrimSpace(s))); l {
	case "COMPANY", "ORGANIZATION":
		return EntityOrg
	case "GPE", "LOCATION":
		return EntityOther
	default:
		return l
	}
}

var languageNames = map[string]string{
	"en": "English", "ta": "Tamil", "hi": "Hindi", "ml": "Malayalam", "te": "Telugu",
	"kn": "Kannada", "es": "Spanish", "fr": "French", "de": "German", "pt": "Portuguese",
}

func languageName(code string) string {
	if n, ok := languageNames[strings.ToLower(code)]; ok {
		return n
	}
	if code == "" {
		return "English"
	}
	return code
}
