package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

type QdrantConfig struct {
	URL        string // e.g. "http://localhost:6333"
	APIKey     string
	Collection string
	Dims       uint64
}

// QdrantIndex implements Index on a Qdrant collection. Every query is
// filtered by workspace_id.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	logger     *slog.Logger
}

// parseQdrantURL maps a REST URL onto the gRPC endpoint the client needs.
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, perr := url.Parse(rawURL)
	if perr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("knowledge: invalid qdrant URL: %q", rawURL)
	}
	useTLS = u.Scheme == "https"
	host = u.Hostname()

	port = 6334
	if ps := u.Port(); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil {
			return "", 0, false, fmt.Errorf("knowledge: invalid port in qdrant URL: %q", ps)
		}
		if p != 6333 {
			port = p
		}
	}
	return host, port, useTLS, nil
}

func NewQdrantIndex(cfg QdrantConfig, logger *slog.Logger) (*QdrantIndex, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: connect to qdrant at %s:%d: %w", host, port, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QdrantIndex{client: client, collection: cfg.Collection, dims: cfg.Dims, logger: logger}, nil
}

// EnsureCollection creates the collection and its payload indexes if missing.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("knowledge: check collection exists: %w", err)
	}
	if !exists {
		if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.dims,
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("knowledge: create collection %q: %w", q.collection, err)
		}
		q.logger.Info("qdrant: created collection", "collection", q.collection, "dims", q.dims)
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	for _, field := range []string{"workspace_id", "source"} {
		if _, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collection,
			FieldName:      field,
			FieldType:      &keywordType,
		}); err != nil {
			return fmt.Errorf("knowledge: ensure index on %q: %w", field, err)
		}
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qp := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qp[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID.String()),
			Vectors: qdrant.NewVectorsDense(p.Embedding),
			Payload: qdrant.NewValueMap(map[string]any{
				"workspace_id": p.WorkspaceID,
				"source":       p.Source,
				"chunk_index":  int64(p.ChunkIndex),
				"total_chunks": int64(p.TotalChunks),
				"text":         p.Text,
				"stored_unix":  time.Now().Unix(),
			}),
		}
	}
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qp,
	}); err != nil {
		return fmt.Errorf("knowledge: qdrant upsert %d points: %w", len(points), err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, workspaceID string, embedding []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}
	l := uint64(limit)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("workspace_id", workspaceID)}},
		Limit:          &l,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: qdrant query: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, sp := range scored {
		text := sp.GetPayload()["text"].GetStringValue()
		if text == "" {
			continue
		}
		hits = append(hits, Hit{ID: sp.GetId().GetUuid(), Text: text, Score: sp.GetScore()})
	}
	return hits, nil
}

func (q *QdrantIndex) Count(ctx context.Context, workspaceID string) (uint64, error) {
	req := &qdrant.CountPoints{CollectionName: q.collection, Exact: qdrant.PtrOf(true)}
	if workspaceID != "" {
		req.Filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("workspace_id", workspaceID)}}
	}
	n, err := q.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("knowledge: qdrant count: %w", err)
	}
	return n, nil
}

func (q *QdrantIndex) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("workspace_id", workspaceID)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("knowledge: qdrant delete workspace %s: %w", workspaceID, err)
	}
	return nil
}

// Healthy returns nil if Qdrant answers a health check.
func (q *QdrantIndex) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("knowledge: qdrant unhealthy: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Close() error { return q.client.Close() }
