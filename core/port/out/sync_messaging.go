package out

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncCompletedJob is published after a batch finishes, successful or not.
// Downstream consumers use the counts to detect partial completion.
type SyncCompletedJob struct {
	ID        string    `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Total     int       `json:"total"`
	Synced    int       `json:"synced"`
	Indexed   int       `json:"indexed"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Duration  int64     `json:"duration_ms"`
}

// SyncStatus is the live status of an account's sync run.
type SyncStatus struct {
	AccountID uuid.UUID `json:"account_id"`
	State     string    `json:"state"` // syncing, completed, failed
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageProducer publishes sync lifecycle events.
type MessageProducer interface {
	PublishSyncCompleted(ctx context.Context, job *SyncCompletedJob) error
	SetSyncStatus(ctx context.Context, status *SyncStatus) error
}
