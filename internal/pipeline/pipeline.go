package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/notify"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"
)

type Generator interface {
	Generate(ctx context.Context, transcript string, b signals.Bundle, companyContext string) (recommend.Recommendation, error)
}

type ContextSource interface {
	ContextFor(ctx context.Context, workspaceID, transcript string, b signals.Bundle) string
}

type Recorder interface {
	Record(ctx context.Context, in calls.RecordInput) (calls.Call, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, c calls.Call) []notify.Delivery
}

// Deps wires a Pipeline. Transcriber may be nil when only transcripts are
// processed; Knowledge, Notifier and Limiter are optional.
type Deps struct {
	Transcriber transcription.Transcriber
	Analyzer    signals.Analyzer
	Knowledge   ContextSource
	Generator   Generator
	Engine      *decision.Engine
	Calls       Recorder
	Notifier    Dispatcher
	Limiter     Limiter

	// BatchParallelism bounds ProcessBatch fan-out.
	BatchParallelism int
}

// Pipeline runs one call end to end: transcribe, analyze, retrieve context,
// generate, decide, persist, notify. Stages run strictly in order; calls
// run concurrently.
type Pipeline struct {
	transcriber transcription.Transcriber
	analyzer    signals.Analyzer
	knowledge   ContextSource
	generator   Generator
	engine      *decision.Engine
	calls       Recorder
	notifier    Dispatcher
	limiter     Limiter
	parallel    int
}

const defaultBatchParallelism = 4

func New(d Deps) *Pipeline {
	p := &Pipeline{
		transcriber: d.Transcriber,
		analyzer:    d.Analyzer,
		knowledge:   d.Knowledge,
		generator:   d.Generator,
		engine:      d.Engine,
		calls:       d.Calls,
		notifier:    d.Notifier,
		limiter:     d.Limiter,
		parallel:    d.BatchParallelism,
	}
	if p.analyzer == nil {
		p.analyzer = signals.NewLexicalAnalyzer()
	}
	if p.engine == nil {
		p.engine = decision.New()
	}
	if p.limiter == nil {
		p.limiter = noLimit{}
	}
	if p.parallel <= 0 {
		p.parallel = defaultBatchParallelism
	}
	return p
}

type AudioInput struct {
	WorkspaceID string
	AudioPath   string
	Filename    string
	Language    string
}

type TranscriptInput struct {
	WorkspaceID string
	Transcript  string
	Filename    string
	Language    string
	Segments    []transcription.Segment
	Duration    time.Duration
}

// Result is a processed call plus what the notify stage did with it.
type Result struct {
	Call          calls.Call        `json:"call"`
	Notifications []notify.Delivery `json:"notifications"`
}

// Process runs the full pipeline for one audio file.
func (p *Pipeline) Process(ctx context.Context, in AudioInput) (Result, error) {
	if in.WorkspaceID == "" || in.AudioPath == "" {
		return Result{}, fail(StageAdmit, ErrInvalidInput)
	}
	if p.transcriber == nil {
		return Result{}, fail(StageTranscribe, errors.New("no transcriber configured"))
	}
	release, err := p.limiter.Acquire(ctx, in.WorkspaceID)
	if err != nil {
		return Result{}, fail(StageAdmit, err)
	}
	defer release()

	log := logger.From(ctx).With("workspace_id", in.WorkspaceID, "audio", in.Filename)
	ctx = logger.With(ctx, log)

	start := time.Now()
	tr, err := p.transcriber.Transcribe(ctx, transcription.Request{
		AudioPath: in.AudioPath,
		Filename:  in.Filename,
		Language:  in.Language,
	})
	if err != nil {
		return Result{}, fail(StageTranscribe, err)
	}
	if tr == nil || strings.TrimSpace(tr.Text) == "" {
		return Result{}, fail(StageTranscribe, ErrEmptyTranscript)
	}
	log.Info("transcribed", "chars", len(tr.Text), "segments", len(tr.Segments), "took_ms", time.Since(start).Milliseconds())

	lang := tr.Language
	if lang == "" {
		lang = in.Language
	}
	return p.run(ctx, TranscriptInput{
		WorkspaceID: in.WorkspaceID,
		Transcript:  tr.Text,
		Filename:    in.Filename,
		Language:    lang,
		Segments:    tr.Segments,
		Duration:    tr.Duration,
	})
}

// ProcessTranscript runs the pipeline from text, skipping transcription.
func (p *Pipeline) ProcessTranscript(ctx context.Context, in TranscriptInput) (Result, error) {
	if in.WorkspaceID == "" || strings.TrimSpace(in.Transcript) == "" {
		return Result{}, fail(StageAdmit, ErrInvalidInput)
	}
	release, err := p.limiter.Acquire(ctx, in.WorkspaceID)
	if err != nil {
		return Result{}, fail(StageAdmit, err)
	}
	defer release()

	ctx = logger.With(ctx, logger.From(ctx).With("workspace_id", in.WorkspaceID))
	return p.run(ctx, in)
}

func (p *Pipeline) run(ctx context.Context, in TranscriptInput) (Result, error) {
	log := logger.From(ctx)
	if err := ctx.Err(); err != nil {
		return Result{}, fail(StageAnalyze, err)
	}

	bundle := p.analyze(ctx, in)
	log.Info("signals extracted", "intent", bundle.Intent, "sentiment", bundle.Sentiment.Label, "source", bundle.Source)

	companyContext := ""
	if p.knowledge != nil {
		companyContext = p.knowledge.ContextFor(ctx, in.WorkspaceID, in.Transcript, bundle)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fail(StageRetrieve, err)
	}

	rec, err := p.generator.Generate(ctx, in.Transcript, bundle, companyContext)
	if err != nil {
		// A tagged generation failure never reaches the engine.
		return Result{}, fail(StageGenerate, err)
	}

	d := p.engine.Evaluate(bundle, rec)
	logDecision(ctx, d)

	c, err := p.calls.Record(ctx, calls.RecordInput{
		WorkspaceID:     in.WorkspaceID,
		AudioFilename:   in.Filename,
		Language:        in.Language,
		DurationSeconds: in.Duration.Seconds(),
		Transcript:      in.Transcript,
		Segments:        in.Segments,
		Signals:         bundle,
		Recommendation:  rec,
		Decision:        d,
	})
	if err != nil {
		return Result{}, fail(StagePersist, err)
	}

	res := Result{Call: c, Notifications: []notify.Delivery{}}
	if p.notifier != nil {
		res.Notifications = p.notifier.Dispatch(ctx, c)
	}
	log.Info("call processed", "call_id", c.ID, "priority", d.PriorityScore, "action", d.FinalAction)
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, in TranscriptInput) signals.Bundle {
	if la, ok := p.analyzer.(signals.LanguageAnalyzer); ok && in.Language != "" {
		return la.AnalyzeLanguage(ctx, in.Language, in.Transcript, in.Segments)
	}
	return p.analyzer.Analyze(ctx, in.Transcript, in.Segments)
}

// logDecision logs each fired rule; rules on escalated calls log at warn.
func logDecision(ctx context.Context, d decision.Decision) {
	log := logger.From(ctx)
	for _, r := range d.RulesApplied {
		if d.EscalationRequired {
			log.Warn("rule fired", "rule", r)
			continue
		}
		log.Info("rule fired", "rule", r)
	}
	log.Info("decision complete",
		"priority", d.PriorityScore,
		"confidence", d.ConfidenceScore,
		"urgent", d.UrgentFlag,
		"escalation", d.EscalationRequired,
	)
}
