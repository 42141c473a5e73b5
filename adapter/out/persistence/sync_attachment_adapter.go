package persistence

import (
	"context"
	"database/sql"

	"sync_server/core/port/out"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// Attachment Adapter (PostgreSQL)
// =============================================================================

// AttachmentAdapter implements out.AttachmentRepository using PostgreSQL.
// Rows are keyed by the provider attachment id alone, empty included.
type AttachmentAdapter struct {
	db *sqlx.DB
}

// NewAttachmentAdapter creates a new AttachmentAdapter.
func NewAttachmentAdapter(db *sqlx.DB) *AttachmentAdapter {
	return &AttachmentAdapter{db: db}
}

// =============================================================================
// Database Row Mapping
// =============================================================================

type attachmentRow struct {
	ID              string         `db:"id"`
	EmailID         string         `db:"email_id"`
	Name            string         `db:"name"`
	MimeType        string         `db:"mime_type"`
	Size            int64          `db:"size"`
	Inline          bool           `db:"inline"`
	ContentID       sql.NullString `db:"content_id"`
	ContentLocation sql.NullString `db:"content_location"`
	Content         []byte         `db:"content"`
}

func (r *attachmentRow) toEntity() *out.AttachmentEntity {
	entity := &out.AttachmentEntity{
		ID:       r.ID,
		EmailID:  r.EmailID,
		Name:     r.Name,
		MimeType: r.MimeType,
		Size:     r.Size,
		Inline:   r.Inline,
		Content:  r.Content,
	}
	if r.ContentID.Valid {
		entity.ContentID = r.ContentID.String
	}
	if r.ContentLocation.Valid {
		entity.ContentLocation = r.ContentLocation.String
	}
	return entity
}

// =============================================================================
// Operations
// =============================================================================

// Upsert writes the attachment row, overwriting on id conflict.
func (a *AttachmentAdapter) Upsert(ctx context.Context, attachment *out.AttachmentEntity) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO email_attachments (
			id, email_id, name, mime_type, size, inline,
			content_id, content_location, content
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email_id = EXCLUDED.email_id,
			name = EXCLUDED.name,
			mime_type = EXCLUDED.mime_type,
			size = EXCLUDED.size,
			inline = EXCLUDED.inline,
			content_id = EXCLUDED.content_id,
			content_location = EXCLUDED.content_location,
			content = EXCLUDED.content`,
		attachment.ID,
		attachment.EmailID,
		attachment.Name,
		attachment.MimeType,
		attachment.Size,
		attachment.Inline,
		nullString(attachment.ContentID),
		nullString(attachment.ContentLocation),
		attachment.Content,
	)
	return err
}

// ListByEmail returns the attachments of one email.
func (a *AttachmentAdapter) ListByEmail(ctx context.Context, emailID string) ([]*out.AttachmentEntity, error) {
	rows, err := a.db.QueryxContext(ctx, `
		SELECT id, email_id, name, mime_type, size, inline,
			content_id, content_location, content
		FROM email_attachments
		WHERE email_id = $1
		ORDER BY name ASC`,
		emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*out.AttachmentEntity
	for rows.Next() {
		var row attachmentRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		attachments = append(attachments, row.toEntity())
	}
	return attachments, rows.Err()
}

// Ensure AttachmentAdapter implements out.AttachmentRepository
var _ out.AttachmentRepository = (*AttachmentAdapter)(nil)
