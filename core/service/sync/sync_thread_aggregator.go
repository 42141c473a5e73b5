package sync

import (
	"context"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/google/uuid"
)

// ThreadAggregator maintains the thread's participant set and derived
// status flags from its constituent messages.
type ThreadAggregator struct {
	threads out.ThreadRepository
	emails  out.EmailRepository
}

// NewThreadAggregator creates a ThreadAggregator.
func NewThreadAggregator(threads out.ThreadRepository, emails out.EmailRepository) *ThreadAggregator {
	return &ThreadAggregator{threads: threads, emails: emails}
}

// Upsert creates or updates the thread row for an incoming message.
//
// Subject and lastMessageDate are overwritten unconditionally (last write
// wins), so ingesting an older message out of order regresses them — the
// upstream system behaves the same way and this store mirrors it. done is
// reset to false on every update; the pipeline never flips it true.
func (a *ThreadAggregator) Upsert(ctx context.Context, accountID uuid.UUID, msg *domain.RawMessage, label domain.EmailLabel, participantIDs []int64) (*out.ThreadEntity, error) {
	now := time.Now().UTC()

	existing, err := a.threads.GetByID(ctx, msg.ThreadID)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, apperr.DatabaseError("find thread", err)
	}

	if existing == nil || apperr.IsNotFound(err) {
		thread := &out.ThreadEntity{
			ID:              msg.ThreadID,
			AccountID:       accountID,
			Subject:         msg.Subject,
			LastMessageDate: msg.SentAt,
			ParticipantIDs:  participantIDs,
			Done:            false,
			InboxStatus:     label == domain.LabelInbox,
			SentStatus:      label == domain.LabelSent,
			DraftStatus:     label == domain.LabelDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := a.threads.Create(ctx, thread); err != nil {
			return nil, apperr.DatabaseError("create thread", err)
		}
		return thread, nil
	}

	existing.Subject = msg.Subject
	existing.LastMessageDate = msg.SentAt
	existing.Done = false
	existing.ParticipantIDs = unionIDs(existing.ParticipantIDs, participantIDs)
	existing.UpdatedAt = now
	if err := a.threads.Update(ctx, existing); err != nil {
		return nil, apperr.DatabaseError("update thread", err)
	}
	return existing, nil
}

// RecomputeStatus re-derives the thread's three status flags by scanning
// all emails currently in the thread, ordered by receivedAt ascending.
// This write is authoritative: it overwrites whatever Upsert set and
// leaves exactly one of the three booleans true.
func (a *ThreadAggregator) RecomputeStatus(ctx context.Context, threadID string) error {
	emails, err := a.emails.ListByThread(ctx, threadID)
	if err != nil {
		return apperr.DatabaseError("list thread emails", err)
	}

	labels := make([]domain.EmailLabel, len(emails))
	for i, email := range emails {
		labels[i] = email.EmailLabel
	}
	status := domain.RecomputeThreadStatus(labels)

	err = a.threads.UpdateStatus(ctx, threadID,
		status == domain.LabelInbox,
		status == domain.LabelSent,
		status == domain.LabelDraft,
	)
	if err != nil {
		return apperr.DatabaseError("update thread status", err)
	}
	return nil
}

// unionIDs merges two id sets, collapsing duplicates and preserving
// first-seen order.
func unionIDs(existing, incoming []int64) []int64 {
	seen := make(map[int64]bool, len(existing)+len(incoming))
	merged := make([]int64, 0, len(existing)+len(incoming))
	for _, set := range [][]int64{existing, incoming} {
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
	}
	return merged
}
