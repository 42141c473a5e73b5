// Package out defines outbound ports (driven ports) for the sync pipeline.
package out

import (
	"context"
	"encoding/json"
	"time"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// =============================================================================
// Relational entities
// =============================================================================

// EmailAddressEntity is one participant address, unique per (account, address).
type EmailAddressEntity struct {
	ID        int64     `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	Raw       string    `json:"raw,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadEntity is one conversation row. The three status booleans are
// independent fields; the recompute pass sets exactly one true but
// consumers must not assume a discriminated enum.
type ThreadEntity struct {
	ID              string    `json:"id"` // provider-assigned
	AccountID       uuid.UUID `json:"account_id"`
	Subject         string    `json:"subject"`
	LastMessageDate time.Time `json:"last_message_date"`
	ParticipantIDs  []int64   `json:"participant_ids"`
	Done            bool      `json:"done"`
	InboxStatus     bool      `json:"inbox_status"`
	SentStatus      bool      `json:"sent_status"`
	DraftStatus     bool      `json:"draft_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EmailEntity is the canonical email row, keyed by provider message id.
type EmailEntity struct {
	ID       string `json:"id"` // provider message id
	ThreadID string `json:"thread_id"`

	FromID     int64   `json:"from_id"`
	ToIDs      []int64 `json:"to_ids"`
	CcIDs      []int64 `json:"cc_ids"`
	BccIDs     []int64 `json:"bcc_ids"`
	ReplyToIDs []int64 `json:"reply_to_ids"`

	SentAt           time.Time `json:"sent_at"`
	ReceivedAt       time.Time `json:"received_at"`
	CreatedTime      time.Time `json:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time"`

	InternetMessageID string `json:"internet_message_id"`
	Subject           string `json:"subject"`

	SysLabels          []string `json:"sys_labels"`
	Keywords           []string `json:"keywords"`
	SysClassifications []string `json:"sys_classifications"`
	Sensitivity        string   `json:"sensitivity,omitempty"`

	MeetingMessageMethod string            `json:"meeting_message_method,omitempty"`
	EmailLabel           domain.EmailLabel `json:"email_label"`

	BodySnippet string `json:"body_snippet,omitempty"`
	InReplyTo   string `json:"in_reply_to,omitempty"`
	References  string `json:"references,omitempty"`
	ThreadIndex string `json:"thread_index,omitempty"`

	HasAttachments bool     `json:"has_attachments"`
	FolderID       string   `json:"folder_id,omitempty"`
	Omitted        []string `json:"omitted,omitempty"`
}

// AttachmentEntity is one attachment row, keyed by provider attachment id.
type AttachmentEntity struct {
	ID              string `json:"id"`
	EmailID         string `json:"email_id"`
	Name            string `json:"name"`
	MimeType        string `json:"mime_type"`
	Size            int64  `json:"size"`
	Inline          bool   `json:"inline"`
	ContentID       string `json:"content_id,omitempty"`
	ContentLocation string `json:"content_location,omitempty"`
	Content         []byte `json:"content,omitempty"`
}

// EmailPayload is the provider-opaque part of a message: the raw body and
// header/native-property blobs. Lives in the document store, not Postgres.
type EmailPayload struct {
	EmailID          string          `json:"email_id"`
	AccountID        uuid.UUID       `json:"account_id"`
	Body             string          `json:"body,omitempty"`
	InternetHeaders  json.RawMessage `json:"internet_headers,omitempty"`
	NativeProperties json.RawMessage `json:"native_properties,omitempty"`
}

// =============================================================================
// Repository ports
// =============================================================================

// AddressRepository persists participant addresses. No delete: the pipeline
// never removes an address once sighted.
type AddressRepository interface {
	// GetByAccountAddress looks up the unique (account, address) row.
	// Returns apperr.NotFound when absent.
	GetByAccountAddress(ctx context.Context, accountID uuid.UUID, address string) (*EmailAddressEntity, error)
	Create(ctx context.Context, addr *EmailAddressEntity) error
	Update(ctx context.Context, addr *EmailAddressEntity) error
}

// ThreadRepository persists conversation rows.
type ThreadRepository interface {
	// GetByID returns apperr.NotFound when the thread does not exist.
	GetByID(ctx context.Context, id string) (*ThreadEntity, error)
	Create(ctx context.Context, thread *ThreadEntity) error
	Update(ctx context.Context, thread *ThreadEntity) error
	// UpdateStatus is the authoritative status write after recomputation.
	UpdateStatus(ctx context.Context, id string, inbox, sent, draft bool) error
}

// EmailRepository persists canonical email rows.
type EmailRepository interface {
	GetByID(ctx context.Context, id string) (*EmailEntity, error)
	// Upsert fully overwrites the row on conflict; relation arrays are
	// replaced, never appended.
	Upsert(ctx context.Context, email *EmailEntity) error
	// ListByThread returns the thread's emails ordered by received_at
	// ascending, as status recomputation requires.
	ListByThread(ctx context.Context, threadID string) ([]*EmailEntity, error)
}

// AttachmentRepository persists attachment rows keyed by provider id.
type AttachmentRepository interface {
	Upsert(ctx context.Context, attachment *AttachmentEntity) error
	ListByEmail(ctx context.Context, emailID string) ([]*AttachmentEntity, error)
}

// PayloadRepository stores the opaque body/header payload per email.
type PayloadRepository interface {
	Save(ctx context.Context, payload *EmailPayload) error
	Get(ctx context.Context, emailID string) (*EmailPayload, error)
}
