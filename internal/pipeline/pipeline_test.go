package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/notify"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
)

const churnText = "I want to cancel, this is terrible."

type stubTranscriber struct {
	byPath map[string]string
	err    map[string]error
}

func (s *stubTranscriber) Transcribe(_ context.Context, req transcription.Request) (*transcription.Result, error) {
	if err := s.err[req.AudioPath]; err != nil {
		return nil, err
	}
	return &transcription.Result{Text: s.byPath[req.AudioPath], Language: "en", Duration: 42 * time.Second}, nil
}

type stubGenerator struct {
	mu      sync.Mutex
	rec     recommend.Recommendation
	err     error
	context []string
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ signals.Bundle, companyContext string) (recommend.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = append(s.context, companyContext)
	return s.rec, s.err
}

type stubKnowledge struct{}

func (stubKnowledge) ContextFor(context.Context, string, string, signals.Bundle) string {
	return "=== COMPANY POLICY CONTEXT ===\nRefunds need manager approval."
}

type stubNotifier struct {
	mu  sync.Mutex
	got []string
}

func (s *stubNotifier) Dispatch(_ context.Context, c calls.Call) []notify.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, c.ID)
	return []notify.Delivery{{Channel: "email", Recipient: "lead@example.com", Status: notify.StatusSent}}
}

type busyLimiter struct{}

func (busyLimiter) Acquire(context.Context, string) (func(), error) { return nil, ErrBusy }

func highRiskRec() recommend.Recommendation {
	return recommend.Recommendation{
		CallSummaryShort:  "Customer threatens to cancel",
		RiskLevel:         "high",
		OpportunityLevel:  "low",
		RecommendedAction: "Send a survey",
		PriorityScore:     recommend.NewScore(70),
		Reasoning:         "Angry customer",
	}
}

type fixture struct {
	p        *Pipeline
	calls    *calls.Service
	gen      *stubGenerator
	notifier *stubNotifier
}

func newFixture(t *testing.T, gen *stubGenerator, tr transcription.Transcriber, lim Limiter) fixture {
	t.Helper()
	svc := calls.NewService(calls.NewMemoryRepo(), nil)
	n := &stubNotifier{}
	p := New(Deps{
		Transcriber:      tr,
		Knowledge:        stubKnowledge{},
		Generator:        gen,
		Calls:            svc,
		Notifier:         n,
		Limiter:          lim,
		BatchParallelism: 2,
	})
	return fixture{p: p, calls: svc, gen: gen, notifier: n}
}

func TestProcessTranscript_ChurnEndToEnd(t *testing.T) {
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, nil, nil)

	res, err := f.p.ProcessTranscript(context.Background(), TranscriptInput{WorkspaceID: "ws-1", Transcript: churnText})
	require.NoError(t, err)

	d := res.Call.Decision
	assert.Equal(t, decision.ActionEscalate, d.FinalAction)
	assert.Equal(t, 90, d.PriorityScore)
	assert.True(t, d.EscalationRequired)
	assert.True(t, d.UrgentFlag)
	assert.Equal(t, signals.IntentChurnRisk, d.Intent)
	assert.Equal(t, []string{
		"RULE_1: High risk detected - forced escalation",
		"RULE_2: Churn risk - priority elevated from 70 to 90",
		"RULE_4: Priority 90 > 85 - urgent flag set",
	}, d.RulesApplied)

	assert.Equal(t, calls.StatusPending, res.Call.Status)
	assert.Len(t, res.Notifications, 1)
	assert.Equal(t, []string{res.Call.ID}, f.notifier.got)
	assert.Contains(t, f.gen.context[0], "COMPANY POLICY CONTEXT")

	stored, err := f.calls.Get(context.Background(), "ws-1", res.Call.ID)
	require.NoError(t, err)
	assert.Equal(t, d, stored.Decision)
}

func TestProcessTranscript_GenerationErrorSkipsEngine(t *testing.T) {
	genErr := &recommend.GenerationError{Kind: recommend.KindJSONParse, Details: "unexpected end of JSON input", Raw: "{"}
	f := newFixture(t, &stubGenerator{err: genErr}, nil, nil)

	_, err := f.p.ProcessTranscript(context.Background(), TranscriptInput{WorkspaceID: "ws-1", Transcript: churnText})
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageGenerate, se.Stage)

	var ge *recommend.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, recommend.KindJSONParse, ge.Kind)

	all, err := f.calls.ListAll(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is persisted when generation fails")
	assert.Empty(t, f.notifier.got)
}

func TestProcessTranscript_RejectsEmptyInput(t *testing.T) {
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, nil, nil)

	_, err := f.p.ProcessTranscript(context.Background(), TranscriptInput{WorkspaceID: "ws-1", Transcript: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StageAdmit, StageOf(err))
}

func TestProcess_AudioStages(t *testing.T) {
	tr := &stubTranscriber{
		byPath: map[string]string{"/a.wav": churnText, "/silent.wav": ""},
		err:    map[string]error{"/broken.wav": errors.New("whisper: 503")},
	}
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, tr, nil)
	ctx := context.Background()

	res, err := f.p.Process(ctx, AudioInput{WorkspaceID: "ws-1", AudioPath: "/a.wav", Filename: "a.wav"})
	require.NoError(t, err)
	assert.Equal(t, "a.wav", res.Call.AudioFilename)
	assert.Equal(t, "en", res.Call.Language)
	assert.InDelta(t, 42.0, res.Call.DurationSeconds, 0.001)

	_, err = f.p.Process(ctx, AudioInput{WorkspaceID: "ws-1", AudioPath: "/broken.wav"})
	assert.Equal(t, StageTranscribe, StageOf(err))

	_, err = f.p.Process(ctx, AudioInput{WorkspaceID: "ws-1", AudioPath: "/silent.wav"})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestProcess_WithoutTranscriber(t *testing.T) {
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, nil, nil)
	_, err := f.p.Process(context.Background(), AudioInput{WorkspaceID: "ws-1", AudioPath: "/a.wav"})
	assert.Equal(t, StageTranscribe, StageOf(err))
}

func TestProcess_BusyWorkspace(t *testing.T) {
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, nil, busyLimiter{})

	_, err := f.p.ProcessTranscript(context.Background(), TranscriptInput{WorkspaceID: "ws-1", Transcript: churnText})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, StageAdmit, StageOf(err))
}

func TestProcessBatch_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	tr := &stubTranscriber{
		byPath: map[string]string{"/1.wav": churnText, "/3.wav": "Can you show me a demo next week?"},
		err:    map[string]error{"/2.wav": errors.New("decode failed")},
	}
	f := newFixture(t, &stubGenerator{rec: highRiskRec()}, tr, nil)

	items := f.p.ProcessBatch(context.Background(), []AudioInput{
		{WorkspaceID: "ws-1", AudioPath: "/1.wav", Filename: "1.wav"},
		{WorkspaceID: "ws-1", AudioPath: "/2.wav", Filename: "2.wav"},
		{WorkspaceID: "ws-1", AudioPath: "/3.wav"},
	})
	require.Len(t, items, 3)

	assert.Equal(t, "1.wav", items[0].Filename)
	assert.Equal(t, BatchCompleted, items[0].Status)
	assert.NotEmpty(t, items[0].CallID)
	assert.Equal(t, 90, items[0].PriorityScore)

	assert.Equal(t, "2.wav", items[1].Filename)
	assert.Equal(t, BatchFailed, items[1].Status)
	assert.Equal(t, StageTranscribe, items[1].Stage)
	assert.Contains(t, items[1].Error, "decode failed")

	assert.Equal(t, "/3.wav", items[2].Filename)
	assert.Equal(t, BatchCompleted, items[2].Status)

	all, err := f.calls.ListAll(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRedisLimiter_CapsPerWorkspace(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLimiter(rdb, 1, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "ws-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "ws-1")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := l.Acquire(ctx, "ws-2")
	require.NoError(t, err, "workspaces are capped independently")
	other()

	release()
	again, err := l.Acquire(ctx, "ws-1")
	require.NoError(t, err)
	again()

	assert.False(t, mr.Exists("pipeline:inflight:ws-1"), "released counters are deleted")
}

func TestRedisLimiter_AdmitsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	release, err := NewRedisLimiter(rdb, 1, time.Minute).Acquire(context.Background(), "ws-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}
