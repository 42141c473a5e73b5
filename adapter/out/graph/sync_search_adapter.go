package graph

import (
	"context"
	"fmt"

	"sync_server/core/port/out"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// =============================================================================
// Neo4j Search Index Adapter
// =============================================================================

const embeddingDimensions = 1536

// SearchAdapter implements out.SearchIndex using Neo4j. Each indexed
// message is one Email node keyed by (account_id, email_id), so
// re-indexing the same message updates in place instead of duplicating.
type SearchAdapter struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewSearchAdapter creates a new Neo4j search adapter.
func NewSearchAdapter(driver neo4j.DriverWithContext, dbName string) *SearchAdapter {
	return &SearchAdapter{
		driver: driver,
		dbName: dbName,
	}
}

// EnsureIndexes creates necessary indexes and constraints.
func (a *SearchAdapter) EnsureIndexes(ctx context.Context) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	queries := []string{
		// Vector index for similarity search
		"CREATE VECTOR INDEX email_embedding_index IF NOT EXISTS " +
			"FOR (e:Email) " +
			"ON (e.embedding) " +
			fmt.Sprintf("OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}", embeddingDimensions),
		// Regular indexes
		`CREATE INDEX email_account_idx IF NOT EXISTS FOR (e:Email) ON (e.account_id)`,
		`CREATE INDEX email_thread_idx IF NOT EXISTS FOR (e:Email) ON (e.thread_id)`,
		`CREATE INDEX email_sent_at_idx IF NOT EXISTS FOR (e:Email) ON (e.sent_at)`,
	}

	for _, query := range queries {
		_, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// =============================================================================
// Operations
// =============================================================================

// Insert writes one search record. MERGE keys the node on the account and
// email ids; all other properties are overwritten.
func (a *SearchAdapter) Insert(ctx context.Context, accountID uuid.UUID, record *out.SearchRecord) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	query := `
		MERGE (e:Email {account_id: $accountID, email_id: $emailID})
		SET e.thread_id = $threadID,
			e.subject = $subject,
			e.body = $body,
			e.raw_body = $rawBody,
			e.from = $from,
			e.to = $to,
			e.sent_at = $sentAt,
			e.embedding = $embedding,
			e.updated_at = timestamp()
	`

	params := map[string]interface{}{
		"accountID": accountID.String(),
		"emailID":   record.EmailID,
		"threadID":  record.ThreadID,
		"subject":   record.Subject,
		"body":      record.Body,
		"rawBody":   record.RawBody,
		"from":      record.From,
		"to":        record.To,
		"sentAt":    record.SentAt.Unix(),
		"embedding": record.Embeddings,
	}

	_, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}

	return nil
}

// Search performs a similarity search scoped to one account.
func (a *SearchAdapter) Search(ctx context.Context, accountID uuid.UUID, embedding []float32, topK int) ([]out.SearchHit, error) {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	// Over-fetch before the account filter so topK survives it
	query := `
		CALL db.index.vector.queryNodes('email_embedding_index', $fetchK, $embedding)
		YIELD node, score
		WHERE node.account_id = $accountID
		RETURN node.email_id AS email_id, node.thread_id AS thread_id,
			   node.subject AS subject, node.raw_body AS snippet,
			   node.from AS from, score
		ORDER BY score DESC
		LIMIT $topK
	`

	params := map[string]interface{}{
		"accountID": accountID.String(),
		"embedding": embedding,
		"fetchK":    topK * 4,
		"topK":      topK,
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	var hits []out.SearchHit
	for result.Next(ctx) {
		record := result.Record()
		hits = append(hits, out.SearchHit{
			EmailID:  getStringValue(record, "email_id"),
			ThreadID: getStringValue(record, "thread_id"),
			Subject:  getStringValue(record, "subject"),
			Snippet:  getStringValue(record, "snippet"),
			From:     getStringValue(record, "from"),
			Score:    getFloatValue(record, "score"),
		})
	}

	return hits, nil
}

// =============================================================================
// Record Helpers
// =============================================================================

func getStringValue(record *neo4j.Record, key string) string {
	if v, ok := record.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getFloatValue(record *neo4j.Record, key string) float64 {
	if v, ok := record.Get(key); ok && v != nil {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.SearchIndex = (*SearchAdapter)(nil)
