package sync

import (
	"context"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/logger"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
)

// Status event throttle: publish progress every N messages.
const statusPublishInterval = 50

// Service is the sync orchestrator: the single public entry point of the
// pipeline. It drives a batch of messages for one account through address
// resolution, relational upserts and search indexing, isolating failures
// per message.
type Service struct {
	addresses out.AddressRepository
	ids       *snowflake.Generator
	upserter  *EmailUpserter
	indexer   *Indexer
	producer  out.MessageProducer // optional
}

// NewService creates the orchestrator. producer may be nil when no event
// stream is configured.
func NewService(
	addresses out.AddressRepository,
	ids *snowflake.Generator,
	upserter *EmailUpserter,
	indexer *Indexer,
	producer out.MessageProducer,
) *Service {
	return &Service{
		addresses: addresses,
		ids:       ids,
		upserter:  upserter,
		indexer:   indexer,
		producer:  producer,
	}
}

// BatchResult reports per-message success/failure counts for one batch.
// Synced counts relational upserts; Indexed counts search records; a
// message can be synced but not indexed when embedding or index insertion
// fails. Comparing Total against Synced tells the caller whether to re-run
// the batch, which is safe because every write is idempotent by entity id.
type BatchResult struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// SyncBatch processes an ordered batch of messages for one account,
// exactly once each, end to end.
//
// Messages are processed sequentially, not in parallel: thread status
// recomputation must see fully committed state, and the address upserts
// are read-then-write. One malformed message never aborts the batch; the
// only non-nil error returned is a cancelled context.
func (s *Service) SyncBatch(ctx context.Context, accountID uuid.UUID, messages []*domain.RawMessage) (*BatchResult, error) {
	started := time.Now()
	log := logger.WithField("account_id", accountID.String())
	log.Info("[Service.SyncBatch] syncing %d messages", len(messages))

	// Fresh resolver per run: the address cache is scoped to one
	// batch/account and must not leak across runs.
	resolver := NewAddressResolver(s.addresses, s.ids)

	result := &BatchResult{Total: len(messages)}
	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if msg == nil || msg.ID == "" {
			result.Failed++
			log.Warn("[Service.SyncBatch] skipping message %d without id", i)
			continue
		}

		if err := s.upserter.UpsertEmail(ctx, accountID, msg, resolver); err != nil {
			result.Failed++
			log.WithError(err).WithField("email_id", msg.ID).
				Error("[Service.SyncBatch] failed to sync message")
			continue
		}
		result.Synced++

		if err := s.indexer.IndexMessage(ctx, accountID, msg); err != nil {
			// Relational data is synced; only search visibility is lost
			log.WithError(err).WithField("email_id", msg.ID).
				Warn("[Service.SyncBatch] failed to index message")
		} else {
			result.Indexed++
		}

		if s.producer != nil && (i+1)%statusPublishInterval == 0 {
			s.publishStatus(ctx, accountID, "syncing", i+1, len(messages))
		}
	}

	s.publishCompleted(ctx, accountID, result, started)

	log.Info("[Service.SyncBatch] done: %d synced, %d indexed, %d failed of %d",
		result.Synced, result.Indexed, result.Failed, result.Total)
	return result, nil
}

func (s *Service) publishStatus(ctx context.Context, accountID uuid.UUID, state string, processed, total int) {
	status := &out.SyncStatus{
		AccountID: accountID,
		State:     state,
		Processed: processed,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.producer.SetSyncStatus(ctx, status); err != nil {
		logger.WithError(err).Warn("[Service.SyncBatch] failed to publish sync status")
	}
}

func (s *Service) publishCompleted(ctx context.Context, accountID uuid.UUID, result *BatchResult, started time.Time) {
	if s.producer == nil {
		return
	}
	job := &out.SyncCompletedJob{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Total:     result.Total,
		Synced:    result.Synced,
		Indexed:   result.Indexed,
		Failed:    result.Failed,
		StartedAt: started.UTC(),
		Duration:  time.Since(started).Milliseconds(),
	}
	if err := s.producer.PublishSyncCompleted(ctx, job); err != nil {
		logger.WithError(err).Warn("[Service.SyncBatch] failed to publish completion event")
	}
	s.publishStatus(ctx, accountID, "completed", result.Total, result.Total)
}
