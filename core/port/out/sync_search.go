package out

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Search index
// =============================================================================

// SearchRecord is the denormalized, embedding-augmented representation of
// one message in the per-account search index.
type SearchRecord struct {
	EmailID    string    `json:"email_id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`     // normalized plain text
	RawBody    string    `json:"raw_body"` // snippet
	From       string    `json:"from"`
	To         []string  `json:"to"`
	SentAt     time.Time `json:"sent_at"`
	Embeddings []float32 `json:"embeddings"`
}

// SearchHit is one ranked result from the search index.
type SearchHit struct {
	EmailID  string  `json:"email_id"`
	ThreadID string  `json:"thread_id"`
	Subject  string  `json:"subject"`
	Snippet  string  `json:"snippet"`
	From     string  `json:"from"`
	Score    float64 `json:"score"`
}

// SearchIndex is the per-account search index. Insert is append-style;
// whether re-indexing the same email produces a duplicate is the index's
// own concern, not the pipeline's.
type SearchIndex interface {
	Insert(ctx context.Context, accountID uuid.UUID, record *SearchRecord) error
	Search(ctx context.Context, accountID uuid.UUID, embedding []float32, topK int) ([]SearchHit, error)
}

// =============================================================================
// Embeddings
// =============================================================================

// Embedder turns normalized text into a vector. External call; may fail
// independently of storage.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
