package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// =============================================================================
// Thread Adapter (PostgreSQL)
// =============================================================================

// ThreadAdapter implements out.ThreadRepository using PostgreSQL.
type ThreadAdapter struct {
	db *sqlx.DB
}

// NewThreadAdapter creates a new ThreadAdapter.
func NewThreadAdapter(db *sqlx.DB) *ThreadAdapter {
	return &ThreadAdapter{db: db}
}

// =============================================================================
// Database Row Mapping
// =============================================================================

type threadRow struct {
	ID              string        `db:"id"`
	AccountID       uuid.UUID     `db:"account_id"`
	Subject         string        `db:"subject"`
	LastMessageDate time.Time     `db:"last_message_date"`
	ParticipantIDs  pq.Int64Array `db:"participant_ids"`
	Done            bool          `db:"done"`
	InboxStatus     bool          `db:"inbox_status"`
	SentStatus      bool          `db:"sent_status"`
	DraftStatus     bool          `db:"draft_status"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (r *threadRow) toEntity() *out.ThreadEntity {
	return &out.ThreadEntity{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Subject:         r.Subject,
		LastMessageDate: r.LastMessageDate,
		ParticipantIDs:  r.ParticipantIDs,
		Done:            r.Done,
		InboxStatus:     r.InboxStatus,
		SentStatus:      r.SentStatus,
		DraftStatus:     r.DraftStatus,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const threadSelectColumns = `
	id, account_id, subject, last_message_date, participant_ids,
	done, inbox_status, sent_status, draft_status, created_at, updated_at`

// =============================================================================
// Operations
// =============================================================================

// GetByID returns the thread row for a provider-assigned conversation id.
func (a *ThreadAdapter) GetByID(ctx context.Context, id string) (*out.ThreadEntity, error) {
	var row threadRow
	err := a.db.QueryRowxContext(ctx,
		`SELECT `+threadSelectColumns+` FROM threads WHERE id = $1`, id).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("thread")
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// Create inserts a new thread row.
func (a *ThreadAdapter) Create(ctx context.Context, thread *out.ThreadEntity) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO threads (
			id, account_id, subject, last_message_date, participant_ids,
			done, inbox_status, sent_status, draft_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		thread.ID,
		thread.AccountID,
		thread.Subject,
		thread.LastMessageDate,
		pq.Int64Array(thread.ParticipantIDs),
		thread.Done,
		thread.InboxStatus,
		thread.SentStatus,
		thread.DraftStatus,
		thread.CreatedAt,
		thread.UpdatedAt,
	)
	return err
}

// Update overwrites the mutable thread fields. Subject and
// last_message_date are last-write-wins; participant_ids is the caller's
// recomputed union, stored as-is.
func (a *ThreadAdapter) Update(ctx context.Context, thread *out.ThreadEntity) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE threads
		SET subject = $1,
			last_message_date = $2,
			participant_ids = $3,
			done = $4,
			updated_at = $5
		WHERE id = $6`,
		thread.Subject,
		thread.LastMessageDate,
		pq.Int64Array(thread.ParticipantIDs),
		thread.Done,
		thread.UpdatedAt,
		thread.ID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("thread")
	}
	return nil
}

// UpdateStatus writes the recomputed status flags. This is the
// authoritative status write; it deliberately touches nothing else.
func (a *ThreadAdapter) UpdateStatus(ctx context.Context, id string, inbox, sent, draft bool) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE threads
		SET inbox_status = $1, sent_status = $2, draft_status = $3, updated_at = $4
		WHERE id = $5`,
		inbox, sent, draft, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("thread")
	}
	return nil
}

// Ensure ThreadAdapter implements out.ThreadRepository
var _ out.ThreadRepository = (*ThreadAdapter)(nil)
