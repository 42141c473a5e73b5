package sync

import (
	"context"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/google/uuid"
)

// Indexer writes a denormalized, embedding-augmented record per message
// into the account's search index.
type Indexer struct {
	embedder   out.Embedder
	index      out.SearchIndex
	normalizer *BodyNormalizer
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder out.Embedder, index out.SearchIndex, normalizer *BodyNormalizer) *Indexer {
	return &Indexer{
		embedder:   embedder,
		index:      index,
		normalizer: normalizer,
	}
}

// IndexMessage normalizes the body, generates an embedding and inserts a
// search record. Failure here affects search visibility for this message
// only; the relational state is untouched either way.
func (ix *Indexer) IndexMessage(ctx context.Context, accountID uuid.UUID, msg *domain.RawMessage) error {
	if ix.embedder == nil || ix.index == nil {
		return apperr.ConfigError("search indexing is not configured")
	}

	raw := msg.Body
	if raw == "" {
		raw = msg.BodySnippet
	}

	body, err := ix.normalizer.Normalize(raw)
	if err != nil {
		// Unparseable markup still gets indexed as-is
		body = raw
	}

	embeddings, err := ix.embedder.Embed(ctx, body)
	if err != nil {
		return apperr.ExternalError("embedding", err).WithDetail("email_id", msg.ID)
	}

	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.Address)
	}

	record := &out.SearchRecord{
		EmailID:    msg.ID,
		ThreadID:   msg.ThreadID,
		Subject:    msg.Subject,
		Body:       body,
		RawBody:    msg.BodySnippet,
		From:       msg.From.Address,
		To:         to,
		SentAt:     msg.SentAt,
		Embeddings: embeddings,
	}
	if err := ix.index.Insert(ctx, accountID, record); err != nil {
		return apperr.ExternalError("search index", err).WithDetail("email_id", msg.ID)
	}
	return nil
}
