package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// =============================================================================
// Email Adapter (PostgreSQL)
// =============================================================================

// EmailAdapter implements out.EmailRepository using PostgreSQL.
// Rows are keyed by the provider message id; upserts overwrite every field
// and replace the relation arrays.
type EmailAdapter struct {
	db *sqlx.DB
}

// NewEmailAdapter creates a new EmailAdapter.
func NewEmailAdapter(db *sqlx.DB) *EmailAdapter {
	return &EmailAdapter{db: db}
}

// =============================================================================
// Database Row Mapping
// =============================================================================

type emailRow struct {
	ID                   string         `db:"id"`
	ThreadID             string         `db:"thread_id"`
	FromID               int64          `db:"from_id"`
	ToIDs                pq.Int64Array  `db:"to_ids"`
	CcIDs                pq.Int64Array  `db:"cc_ids"`
	BccIDs               pq.Int64Array  `db:"bcc_ids"`
	ReplyToIDs           pq.Int64Array  `db:"reply_to_ids"`
	SentAt               time.Time      `db:"sent_at"`
	ReceivedAt           time.Time      `db:"received_at"`
	CreatedTime          time.Time      `db:"created_time"`
	LastModifiedTime     time.Time      `db:"last_modified_time"`
	InternetMessageID    string         `db:"internet_message_id"`
	Subject              string         `db:"subject"`
	SysLabels            pq.StringArray `db:"sys_labels"`
	Keywords             pq.StringArray `db:"keywords"`
	SysClassifications   pq.StringArray `db:"sys_classifications"`
	Sensitivity          sql.NullString `db:"sensitivity"`
	MeetingMessageMethod sql.NullString `db:"meeting_message_method"`
	EmailLabel           string         `db:"email_label"`
	BodySnippet          sql.NullString `db:"body_snippet"`
	InReplyTo            sql.NullString `db:"in_reply_to"`
	References           sql.NullString `db:"references_header"`
	ThreadIndex          sql.NullString `db:"thread_index"`
	HasAttachments       bool           `db:"has_attachments"`
	FolderID             sql.NullString `db:"folder_id"`
	Omitted              pq.StringArray `db:"omitted"`
}

func (r *emailRow) toEntity() *out.EmailEntity {
	entity := &out.EmailEntity{
		ID:                 r.ID,
		ThreadID:           r.ThreadID,
		FromID:             r.FromID,
		ToIDs:              r.ToIDs,
		CcIDs:              r.CcIDs,
		BccIDs:             r.BccIDs,
		ReplyToIDs:         r.ReplyToIDs,
		SentAt:             r.SentAt,
		ReceivedAt:         r.ReceivedAt,
		CreatedTime:        r.CreatedTime,
		LastModifiedTime:   r.LastModifiedTime,
		InternetMessageID:  r.InternetMessageID,
		Subject:            r.Subject,
		SysLabels:          r.SysLabels,
		Keywords:           r.Keywords,
		SysClassifications: r.SysClassifications,
		EmailLabel:         domain.EmailLabel(r.EmailLabel),
		HasAttachments:     r.HasAttachments,
		Omitted:            r.Omitted,
	}
	if r.Sensitivity.Valid {
		entity.Sensitivity = r.Sensitivity.String
	}
	if r.MeetingMessageMethod.Valid {
		entity.MeetingMessageMethod = r.MeetingMessageMethod.String
	}
	if r.BodySnippet.Valid {
		entity.BodySnippet = r.BodySnippet.String
	}
	if r.InReplyTo.Valid {
		entity.InReplyTo = r.InReplyTo.String
	}
	if r.References.Valid {
		entity.References = r.References.String
	}
	if r.ThreadIndex.Valid {
		entity.ThreadIndex = r.ThreadIndex.String
	}
	if r.FolderID.Valid {
		entity.FolderID = r.FolderID.String
	}
	return entity
}

const emailSelectColumns = `
	id, thread_id, from_id, to_ids, cc_ids, bcc_ids, reply_to_ids,
	sent_at, received_at, created_time, last_modified_time,
	internet_message_id, subject, sys_labels, keywords, sys_classifications,
	sensitivity, meeting_message_method, email_label, body_snippet,
	in_reply_to, references_header, thread_index, has_attachments,
	folder_id, omitted`

// =============================================================================
// Operations
// =============================================================================

// GetByID returns one email row by provider message id.
func (a *EmailAdapter) GetByID(ctx context.Context, id string) (*out.EmailEntity, error) {
	var row emailRow
	err := a.db.QueryRowxContext(ctx,
		`SELECT `+emailSelectColumns+` FROM emails WHERE id = $1`, id).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("email")
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// Upsert writes the canonical email row. On conflict every field is
// overwritten and the relation arrays are replaced, never appended.
func (a *EmailAdapter) Upsert(ctx context.Context, email *out.EmailEntity) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO emails (
			id, thread_id, from_id, to_ids, cc_ids, bcc_ids, reply_to_ids,
			sent_at, received_at, created_time, last_modified_time,
			internet_message_id, subject, sys_labels, keywords, sys_classifications,
			sensitivity, meeting_message_method, email_label, body_snippet,
			in_reply_to, references_header, thread_index, has_attachments,
			folder_id, omitted
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23, $24,
			$25, $26
		)
		ON CONFLICT (id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			from_id = EXCLUDED.from_id,
			to_ids = EXCLUDED.to_ids,
			cc_ids = EXCLUDED.cc_ids,
			bcc_ids = EXCLUDED.bcc_ids,
			reply_to_ids = EXCLUDED.reply_to_ids,
			sent_at = EXCLUDED.sent_at,
			received_at = EXCLUDED.received_at,
			created_time = EXCLUDED.created_time,
			last_modified_time = EXCLUDED.last_modified_time,
			internet_message_id = EXCLUDED.internet_message_id,
			subject = EXCLUDED.subject,
			sys_labels = EXCLUDED.sys_labels,
			keywords = EXCLUDED.keywords,
			sys_classifications = EXCLUDED.sys_classifications,
			sensitivity = EXCLUDED.sensitivity,
			meeting_message_method = EXCLUDED.meeting_message_method,
			email_label = EXCLUDED.email_label,
			body_snippet = EXCLUDED.body_snippet,
			in_reply_to = EXCLUDED.in_reply_to,
			references_header = EXCLUDED.references_header,
			thread_index = EXCLUDED.thread_index,
			has_attachments = EXCLUDED.has_attachments,
			folder_id = EXCLUDED.folder_id,
			omitted = EXCLUDED.omitted`,
		email.ID,
		email.ThreadID,
		email.FromID,
		pq.Int64Array(email.ToIDs),
		pq.Int64Array(email.CcIDs),
		pq.Int64Array(email.BccIDs),
		pq.Int64Array(email.ReplyToIDs),
		email.SentAt,
		email.ReceivedAt,
		email.CreatedTime,
		email.LastModifiedTime,
		email.InternetMessageID,
		email.Subject,
		pq.StringArray(email.SysLabels),
		pq.StringArray(email.Keywords),
		pq.StringArray(email.SysClassifications),
		nullString(email.Sensitivity),
		nullString(email.MeetingMessageMethod),
		string(email.EmailLabel),
		nullString(email.BodySnippet),
		nullString(email.InReplyTo),
		nullString(email.References),
		nullString(email.ThreadIndex),
		email.HasAttachments,
		nullString(email.FolderID),
		pq.StringArray(email.Omitted),
	)
	return err
}

// ListByThread returns the thread's emails ordered by received_at
// ascending, the order status recomputation depends on.
func (a *EmailAdapter) ListByThread(ctx context.Context, threadID string) ([]*out.EmailEntity, error) {
	rows, err := a.db.QueryxContext(ctx,
		`SELECT `+emailSelectColumns+` FROM emails WHERE thread_id = $1 ORDER BY received_at ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*out.EmailEntity
	for rows.Next() {
		var row emailRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		emails = append(emails, row.toEntity())
	}
	return emails, rows.Err()
}

// Ensure EmailAdapter implements out.EmailRepository
var _ out.EmailRepository = (*EmailAdapter)(nil)
