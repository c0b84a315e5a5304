package knowledge

import (
	"context"

	"github.com/google/uuid"
)

// Point is one stored policy chunk.
type Point struct {
	ID          uuid.UUID
	WorkspaceID string
	Source      string
	ChunkIndex  int
	TotalChunks int
	Text        string
	Embedding   []float32
}

type Hit struct {
	ID    string
	Text  string
	Score float32
}

// Index is the vector store behind the knowledge service.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, workspaceID string, embedding []float32, limit int) ([]Hit, error)
	Count(ctx context.Context, workspaceID string) (uint64, error)
	DeleteWorkspace(ctx context.Context, workspaceID string) error
}

// Embedder turns texts into vectors. llm.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
