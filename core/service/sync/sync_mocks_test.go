package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/google/uuid"
)

var errStorage = errors.New("storage failure")

// =============================================================================
// In-memory repositories
// =============================================================================

type memAddressRepo struct {
	mu     sync.Mutex
	rows   map[string]*out.EmailAddressEntity // accountID|address
	failOn map[string]bool                    // address → fail lookups
	gets   int
	writes int
}

func newMemAddressRepo() *memAddressRepo {
	return &memAddressRepo{
		rows:   make(map[string]*out.EmailAddressEntity),
		failOn: make(map[string]bool),
	}
}

func addrKey(accountID uuid.UUID, address string) string {
	return accountID.String() + "|" + address
}

func (r *memAddressRepo) GetByAccountAddress(ctx context.Context, accountID uuid.UUID, address string) (*out.EmailAddressEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.failOn[address] {
		return nil, errStorage
	}
	row, ok := r.rows[addrKey(accountID, address)]
	if !ok {
		return nil, apperr.NotFound("email address")
	}
	copied := *row
	return &copied, nil
}

func (r *memAddressRepo) Create(ctx context.Context, addr *out.EmailAddressEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	copied := *addr
	r.rows[addrKey(addr.AccountID, addr.Address)] = &copied
	return nil
}

func (r *memAddressRepo) Update(ctx context.Context, addr *out.EmailAddressEntity) error {
	return r.Create(ctx, addr)
}

func (r *memAddressRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memThreadRepo struct {
	mu   sync.Mutex
	rows map[string]*out.ThreadEntity
}

func newMemThreadRepo() *memThreadRepo {
	return &memThreadRepo{rows: make(map[string]*out.ThreadEntity)}
}

func (r *memThreadRepo) GetByID(ctx context.Context, id string) (*out.ThreadEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperr.NotFound("thread")
	}
	copied := *row
	copied.ParticipantIDs = append([]int64(nil), row.ParticipantIDs...)
	return &copied, nil
}

func (r *memThreadRepo) Create(ctx context.Context, thread *out.ThreadEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *thread
	copied.ParticipantIDs = append([]int64(nil), thread.ParticipantIDs...)
	r.rows[thread.ID] = &copied
	return nil
}

func (r *memThreadRepo) Update(ctx context.Context, thread *out.ThreadEntity) error {
	return r.Create(ctx, thread)
}

func (r *memThreadRepo) UpdateStatus(ctx context.Context, id string, inbox, sent, draft bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return apperr.NotFound("thread")
	}
	row.InboxStatus = inbox
	row.SentStatus = sent
	row.DraftStatus = draft
	return nil
}

type memEmailRepo struct {
	mu   sync.Mutex
	rows map[string]*out.EmailEntity
}

func newMemEmailRepo() *memEmailRepo {
	return &memEmailRepo{rows: make(map[string]*out.EmailEntity)}
}

func (r *memEmailRepo) GetByID(ctx context.Context, id string) (*out.EmailEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperr.NotFound("email")
	}
	copied := *row
	return &copied, nil
}

func (r *memEmailRepo) Upsert(ctx context.Context, email *out.EmailEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *email
	r.rows[email.ID] = &copied
	return nil
}

func (r *memEmailRepo) ListByThread(ctx context.Context, threadID string) ([]*out.EmailEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var emails []*out.EmailEntity
	for _, row := range r.rows {
		if row.ThreadID == threadID {
			copied := *row
			emails = append(emails, &copied)
		}
	}
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})
	return emails, nil
}

type memAttachmentRepo struct {
	mu   sync.Mutex
	rows map[string]*out.AttachmentEntity
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{rows: make(map[string]*out.AttachmentEntity)}
}

func (r *memAttachmentRepo) Upsert(ctx context.Context, attachment *out.AttachmentEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *attachment
	r.rows[attachment.ID] = &copied
	return nil
}

func (r *memAttachmentRepo) ListByEmail(ctx context.Context, emailID string) ([]*out.AttachmentEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var attachments []*out.AttachmentEntity
	for _, row := range r.rows {
		if row.EmailID == emailID {
			copied := *row
			attachments = append(attachments, &copied)
		}
	}
	return attachments, nil
}

type memPayloadRepo struct {
	mu   sync.Mutex
	rows map[string]*out.EmailPayload
}

func newMemPayloadRepo() *memPayloadRepo {
	return &memPayloadRepo{rows: make(map[string]*out.EmailPayload)}
}

func (r *memPayloadRepo) Save(ctx context.Context, payload *out.EmailPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payload
	r.rows[payload.EmailID] = &copied
	return nil
}

func (r *memPayloadRepo) Get(ctx context.Context, emailID string) (*out.EmailPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[emailID]
	if !ok {
		return nil, apperr.NotFound("email payload")
	}
	copied := *row
	return &copied, nil
}

// =============================================================================
// Fake embedder / search index
// =============================================================================

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, 1536), nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v, err := e.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

type memSearchIndex struct {
	mu      sync.Mutex
	records map[string]*out.SearchRecord // accountID|emailID
	err     error
}

func newMemSearchIndex() *memSearchIndex {
	return &memSearchIndex{records: make(map[string]*out.SearchRecord)}
}

func (ix *memSearchIndex) Insert(ctx context.Context, accountID uuid.UUID, record *out.SearchRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.err != nil {
		return ix.err
	}
	copied := *record
	ix.records[fmt.Sprintf("%s|%s", accountID, record.EmailID)] = &copied
	return nil
}

func (ix *memSearchIndex) Search(ctx context.Context, accountID uuid.UUID, embedding []float32, topK int) ([]out.SearchHit, error) {
	return nil, nil
}

func (ix *memSearchIndex) has(accountID uuid.UUID, emailID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.records[fmt.Sprintf("%s|%s", accountID, emailID)]
	return ok
}

// Interface guards
var (
	_ out.AddressRepository    = (*memAddressRepo)(nil)
	_ out.ThreadRepository     = (*memThreadRepo)(nil)
	_ out.EmailRepository      = (*memEmailRepo)(nil)
	_ out.AttachmentRepository = (*memAttachmentRepo)(nil)
	_ out.PayloadRepository    = (*memPayloadRepo)(nil)
	_ out.Embedder             = (*fakeEmbedder)(nil)
	_ out.SearchIndex          = (*memSearchIndex)(nil)
)
