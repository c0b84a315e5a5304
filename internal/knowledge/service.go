package knowledge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"call-intelligence/internal/signals"
	"call-intelligence/pkg/logger"
)

const (
	DefaultTopK = 3

	NoContext = "No company policy context available."

	queryPrefixRunes = 500
	queryKeywords    = 5
)

var ErrEmptyText = errors.New("knowledge: no chunks generated from text")

// ErrDisabled is returned by writes when no index is configured.
var ErrDisabled = errors.New("knowledge: retrieval is not configured")

// pointNamespace seeds deterministic chunk ids so storing the same text
// twice overwrites instead of duplicating.
var pointNamespace = uuid.MustParse("6f1c3e1e-7a38-4b8e-9a43-1f3a2b9c0d55")

type Options struct {
	TopK           int
	ChunkWords     int
	OverlapWords   int
	EmbeddingModel string
	Collection     string
}

// Service stores company policy text and retrieves it as prompt context.
// A nil *Service behaves as a disabled store.
type Service struct {
	index    Index
	embedder Embedder
	opts     Options
}

func NewService(index Index, embedder Embedder, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.OverlapWords <= 0 {
		opts.OverlapWords = DefaultOverlapWords
	}
	return &Service{index: index, embedder: embedder, opts: opts}
}

type StoreResult struct {
	ChunksStored   int    `json:"chunks_stored"`
	TotalDocuments uint64 `json:"total_documents"`
}

// Store chunks, embeds and upserts text for a workspace.
func (s *Service) Store(ctx context.Context, workspaceID, source, text string) (StoreResult, error) {
	if !s.enabled() {
		return StoreResult{}, ErrDisabled
	}
	chunks := Chunk(text, s.opts.ChunkWords, s.opts.OverlapWords)
	if len(chunks) == 0 {
		return StoreResult{}, ErrEmptyText
	}

	vecs, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return StoreResult{}, fmt.Errorf("knowledge: embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		return StoreResult{}, fmt.Errorf("knowledge: embed returned %d vectors for %d chunks", len(vecs), len(chunks))
	}

	points := make([]Point, len(chunks))
	for i, c := range chunks {
		points[i] = Point{
			ID:          uuid.NewSHA1(pointNamespace, []byte(workspaceID+"\x00"+text+"\x00"+strconv.Itoa(i))),
			WorkspaceID: workspaceID,
			Source:      source,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Text:        c,
			Embedding:   vecs[i],
		}
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return StoreResult{}, err
	}

	total, err := s.index.Count(ctx, workspaceID)
	if err != nil {
		logger.From(ctx).Warn("knowledge count failed", "err", err)
	}
	return StoreResult{ChunksStored: len(chunks), TotalDocuments: total}, nil
}

// Retrieve returns up to TopK chunks relevant to query. Failures yield no
// chunks.
func (s *Service) Retrieve(ctx context.Context, workspaceID, query string) []string {
	if !s.enabled() {
		return nil
	}
	log := logger.From(ctx)

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		log.Warn("knowledge query embed failed", "err", err)
		return nil
	}
	hits, err := s.index.Search(ctx, workspaceID, vecs[0], s.opts.TopK)
	if err != nil {
		log.Warn("knowledge search failed", "err", err)
		return nil
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Text)
	}
	return out
}

// ContextFor builds the policy block injected into the recommendation
// prompt. It never fails; with nothing retrieved it returns NoContext.
func (s *Service) ContextFor(ctx context.Context, workspaceID, transcript string, b signals.Bundle) string {
	chunks := s.Retrieve(ctx, workspaceID, SearchQuery(transcript, b))
	if len(chunks) == 0 {
		return NoContext
	}

	var sb strings.Builder
	sb.WriteString("=== COMPANY POLICY CONTEXT ===\n")
	sb.WriteString("Use this company knowledge when making decisions:\n\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "Policy #%d:\n%s\n\n", i+1, c)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SearchQuery is the retrieval query for a call: the opening of the
// transcript plus the intent and first few keywords.
func SearchQuery(transcript string, b signals.Bundle) string {
	r := []rune(transcript)
	if len(r) > queryPrefixRunes {
		r = r[:queryPrefixRunes]
	}

	var kws []string
	for _, cat := range slices.Sorted(maps.Keys(b.Keywords)) {
		kws = append(kws, b.Keywords[cat]...)
	}
	if len(kws) > queryKeywords {
		kws = kws[:queryKeywords]
	}
	return fmt.Sprintf("%s Intent: %s Keywords: %s", string(r), b.Intent, strings.Join(kws, ", "))
}

func (s *Service) Clear(ctx context.Context, workspaceID string) error {
	if !s.enabled() {
		return ErrDisabled
	}
	return s.index.DeleteWorkspace(ctx, workspaceID)
}

type Stats struct {
	TotalDocuments uint64 `json:"total_documents"`
	EmbeddingModel string `json:"embedding_model"`
	CollectionName string `json:"collection_name"`
	Status         string `json:"status"`
}

func (s *Service) Stats(ctx context.Context, workspaceID string) Stats {
	if !s.enabled() {
		return Stats{EmbeddingModel: "N/A", CollectionName: "N/A", Status: "disabled"}
	}
	st := Stats{EmbeddingModel: s.opts.EmbeddingModel, CollectionName: s.opts.Collection, Status: "active"}
	n, err := s.index.Count(ctx, workspaceID)
	if err != nil {
		logger.From(ctx).Warn("knowledge count failed", "err", err)
		st.Status = "degraded"
		return st
	}
	st.TotalDocuments = n
	return st
}

func (s *Service) enabled() bool {
	return s != nil && s.index != nil && s.embedder != nil
}
