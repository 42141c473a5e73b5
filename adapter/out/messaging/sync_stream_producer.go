// Package messaging provides message queue adapters.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"sync_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamSyncCompleted = "sync:completed"
)

// RedisProducer implements out.MessageProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishSyncCompleted publishes a sync completed job.
func (p *RedisProducer) PublishSyncCompleted(ctx context.Context, job *out.SyncCompletedJob) error {
	return p.publish(ctx, StreamSyncCompleted, job)
}

// =============================================================================
// Sync Status (Redis Hash)
// =============================================================================

const syncStatusKeyPrefix = "sync:status:"

// SetSyncStatus stores the live sync status in Redis.
func (p *RedisProducer) SetSyncStatus(ctx context.Context, status *out.SyncStatus) error {
	key := syncStatusKeyPrefix + status.AccountID.String()

	err := p.client.HSet(ctx, key,
		"state", status.State,
		"processed", status.Processed,
		"total", status.Total,
		"updated_at", status.UpdatedAt.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set sync status: %w", err)
	}

	// Set expiry (24 hours)
	p.client.Expire(ctx, key, 24*time.Hour)

	return nil
}

// GetSyncStatus retrieves the live sync status from Redis.
func (p *RedisProducer) GetSyncStatus(ctx context.Context, accountID string) (map[string]string, error) {
	key := syncStatusKeyPrefix + accountID

	result, err := p.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return result, nil
}

// publish publishes a job to a stream using go-redis.
func (p *RedisProducer) publish(ctx context.Context, stream string, job interface{}) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.MessageProducer
var _ out.MessageProducer = (*RedisProducer)(nil)
