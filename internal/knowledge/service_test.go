package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"call-intelligence/internal/signals"
)

type memIndex struct {
	points  []Point
	hits    []Hit
	err     error
	lastWS  string
	lastLim int
}

func (m *memIndex) Upsert(_ context.Context, p []Point) error {
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, p...)
	return nil
}

func (m *memIndex) Search(_ context.Context, ws string, _ []float32, limit int) ([]Hit, error) {
	m.lastWS, m.lastLim = ws, limit
	return m.hits, m.err
}

func (m *memIndex) Count(_ context.Context, ws string) (uint64, error) {
	var n uint64
	for _, p := range m.points {
		if p.WorkspaceID == ws {
			n++
		}
	}
	return n, nil
}

func (m *memIndex) DeleteWorkspace(_ context.Context, ws string) error {
	kept := m.points[:0]
	for _, p := range m.points {
		if p.WorkspaceID != ws {
			kept = append(kept, p)
		}
	}
	m.points = kept
	return nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return strings.Join(w, " ")
}

func TestChunk(t *testing.T) {
	if got := Chunk("", 500, 50); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	got := Chunk(words(1000), 500, 50)
	// windows start at 0, 450, 900
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if n := len(strings.Fields(got[2])); n != 100 {
		t.Fatalf("expected tail of 100 words, got %d", n)
	}
	if len(Chunk("a b c", 2, 5)) != 2 {
		t.Fatalf("overlap >= size should be ignored")
	}
}

func TestService_StoreDeterministicIDs(t *testing.T) {
	idx := &memIndex{}
	svc := NewService(idx, fakeEmbedder{}, Options{})

	res, err := svc.Store(context.Background(), "ws1", "refunds.md", words(600))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if res.ChunksStored != 2 || res.TotalDocuments != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	first := idx.points[0].ID

	if _, err := svc.Store(context.Background(), "ws1", "refunds.md", words(600)); err != nil {
		t.Fatalf("store again: %v", err)
	}
	if idx.points[2].ID != first {
		t.Fatalf("expected same id for same chunk")
	}
	if idx.points[0].TotalChunks != 2 || idx.points[1].ChunkIndex != 1 {
		t.Fatalf("unexpected chunk metadata %+v", idx.points[1])
	}
}

func TestService_StoreErrors(t *testing.T) {
	svc := NewService(&memIndex{}, fakeEmbedder{}, Options{})
	if _, err := svc.Store(context.Background(), "ws", "s", "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	var nilSvc *Service
	if _, err := nilSvc.Store(context.Background(), "ws", "s", "text"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestService_ContextFor(t *testing.T) {
	idx := &memIndex{hits: []Hit{{Text: "Refunds need manager approval."}, {Text: "Demos are 30 minutes."}}}
	svc := NewService(idx, fakeEmbedder{}, Options{TopK: 2})

	got := svc.ContextFor(context.Background(), "ws1", "hello", signals.Bundle{Intent: signals.IntentComplaint})
	want := "=== COMPANY POLICY CONTEXT ===\n" +
		"Use this company knowledge when making decisions:\n\n" +
		"Policy #1:\nRefunds need manager approval.\n\n" +
		"Policy #2:\nDemos are 30 minutes."
	if got != want {
		t.Fatalf("unexpected context:\n%q\nwant\n%q", got, want)
	}
	if idx.lastWS != "ws1" || idx.lastLim != 2 {
		t.Fatalf("search not scoped: ws=%q limit=%d", idx.lastWS, idx.lastLim)
	}
}

func TestService_ContextForNeverFails(t *testing.T) {
	ctx := context.Background()
	b := signals.Bundle{}

	if got := NewService(&memIndex{err: errors.New("down")}, fakeEmbedder{}, Options{}).ContextFor(ctx, "ws", "x", b); got != NoContext {
		t.Fatalf("expected sentinel on search error, got %q", got)
	}
	if got := NewService(&memIndex{}, fakeEmbedder{err: errors.New("429")}, Options{}).ContextFor(ctx, "ws", "x", b); got != NoContext {
		t.Fatalf("expected sentinel on embed error, got %q", got)
	}
	var nilSvc *Service
	if got := nilSvc.ContextFor(ctx, "ws", "x", b); got != NoContext {
		t.Fatalf("expected sentinel when disabled, got %q", got)
	}
}

func TestSearchQuery(t *testing.T) {
	b := signals.Bundle{
		Intent: signals.IntentPricingInquiry,
		Keywords: map[string][]string{
			"pricing": {"price", "cost", "budget"},
			"demo":    {"demo", "walkthrough", "show me"},
		},
	}
	got := SearchQuery(strings.Repeat("é", 600), b)
	if !strings.HasPrefix(got, strings.Repeat("é", 500)+" Intent: pricing_inquiry Keywords: ") {
		t.Fatalf("unexpected prefix: %q", got[:40])
	}
	if !strings.HasSuffix(got, "demo, walkthrough, show me, price, cost") {
		t.Fatalf("unexpected keywords: %q", got)
	}
}

func TestService_Stats(t *testing.T) {
	var nilSvc *Service
	if st := nilSvc.Stats(context.Background(), "ws"); st.Status != "disabled" {
		t.Fatalf("expected disabled, got %+v", st)
	}
	idx := &memIndex{points: []Point{{WorkspaceID: "ws"}, {WorkspaceID: "other"}}}
	st := NewService(idx, fakeEmbedder{}, Options{Collection: "company_policies", EmbeddingModel: "m"}).Stats(context.Background(), "ws")
	if st.Status != "active" || st.TotalDocuments != 1 || st.CollectionName != "company_policies" {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestParseQdrantURL(t *testing.T) {
	host, port, tls, err := parseQdrantURL("https://q.example.com:6333")
	if err != nil || host != "q.example.com" || port != 6334 || !tls {
		t.Fatalf("unexpected: %s %d %v %v", host, port, tls, err)
	}
	_, port, _, _ = parseQdrantURL("http://localhost:7000")
	if port != 7000 {
		t.Fatalf("expected explicit port kept, got %d", port)
	}
	if _, _, _, err := parseQdrantURL("not a url"); err == nil {
		t.Fatalf("expected error")
	}
}
