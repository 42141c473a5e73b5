package sync

import (
	"context"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/apperr"
	"sync_server/pkg/logger"

	"github.com/google/uuid"
)

// EmailUpserter writes the canonical email record and its relations,
// coordinating with the ThreadAggregator.
type EmailUpserter struct {
	emails      out.EmailRepository
	attachments out.AttachmentRepository
	payloads    out.PayloadRepository
	aggregator  *ThreadAggregator
}

// NewEmailUpserter creates an EmailUpserter.
func NewEmailUpserter(
	emails out.EmailRepository,
	attachments out.AttachmentRepository,
	payloads out.PayloadRepository,
	aggregator *ThreadAggregator,
) *EmailUpserter {
	return &EmailUpserter{
		emails:      emails,
		attachments: attachments,
		payloads:    payloads,
		aggregator:  aggregator,
	}
}

// UpsertEmail ingests one message end to end on the relational side:
// resolve addresses, upsert the thread, upsert the email row, save the
// opaque payload, recompute thread status, upsert attachments.
//
// Ordering matters: status recomputation scans the thread's emails, so the
// email row must exist before it runs. There is no multi-entity
// transaction; a failure between the thread write and the email write can
// leave a thread with no matching email, which a re-run repairs because
// every write is idempotent by entity id.
func (u *EmailUpserter) UpsertEmail(ctx context.Context, accountID uuid.UUID, msg *domain.RawMessage, resolver *AddressResolver) error {
	label := domain.ClassifyLabels(msg.SysLabels)

	resolved := resolver.Resolve(ctx, accountID, msg.Participants())

	from, ok := resolved[msg.From.Address]
	if !ok {
		// Without a sender there is no valid fromId; skip the message
		// entirely before any write.
		logger.WithFields(map[string]any{
			"account_id": accountID.String(),
			"email_id":   msg.ID,
		}).Error("[EmailUpserter.UpsertEmail] failed to resolve sender %s, skipping message", msg.From.Address)
		return apperr.NotFound("sender address").WithDetail("email_id", msg.ID)
	}

	toIDs := mapAddressIDs(msg.To, resolved)
	ccIDs := mapAddressIDs(msg.Cc, resolved)
	bccIDs := mapAddressIDs(msg.Bcc, resolved)
	replyToIDs := mapAddressIDs(msg.ReplyTo, resolved)

	// Thread participants: sender plus to/cc/bcc. replyTo stays out of
	// the participant set.
	participantIDs := unionIDs([]int64{from.ID}, append(append(append([]int64{}, toIDs...), ccIDs...), bccIDs...))

	thread, err := u.aggregator.Upsert(ctx, accountID, msg, label, participantIDs)
	if err != nil {
		return err
	}

	entity := &out.EmailEntity{
		ID:                   msg.ID,
		ThreadID:             thread.ID,
		FromID:               from.ID,
		ToIDs:                toIDs,
		CcIDs:                ccIDs,
		BccIDs:               bccIDs,
		ReplyToIDs:           replyToIDs,
		SentAt:               msg.SentAt,
		ReceivedAt:           msg.ReceivedAt,
		CreatedTime:          msg.CreatedTime,
		LastModifiedTime:     time.Now().UTC(),
		InternetMessageID:    msg.InternetMessageID,
		Subject:              msg.Subject,
		SysLabels:            msg.SysLabels,
		Keywords:             msg.Keywords,
		SysClassifications:   msg.SysClassifications,
		Sensitivity:          msg.Sensitivity,
		MeetingMessageMethod: msg.MeetingMessageMethod,
		EmailLabel:           label,
		BodySnippet:          msg.BodySnippet,
		InReplyTo:            msg.InReplyTo,
		References:           msg.References,
		ThreadIndex:          msg.ThreadIndex,
		HasAttachments:       msg.HasAttachments,
		FolderID:             msg.FolderID,
		Omitted:              msg.Omitted,
	}
	if err := u.emails.Upsert(ctx, entity); err != nil {
		return apperr.DatabaseError("upsert email", err).WithDetail("email_id", msg.ID)
	}

	// The opaque payload lives in the document store; losing it does not
	// invalidate the relational row.
	if u.payloads != nil {
		payload := &out.EmailPayload{
			EmailID:          msg.ID,
			AccountID:        accountID,
			Body:             msg.Body,
			InternetHeaders:  msg.InternetHeaders,
			NativeProperties: msg.NativeProperties,
		}
		if err := u.payloads.Save(ctx, payload); err != nil {
			logger.WithError(err).WithField("email_id", msg.ID).
				Warn("[EmailUpserter.UpsertEmail] failed to save email payload")
		}
	}

	if err := u.aggregator.RecomputeStatus(ctx, thread.ID); err != nil {
		return err
	}

	for _, attachment := range msg.Attachments {
		if err := u.upsertAttachment(ctx, msg.ID, attachment); err != nil {
			logger.WithError(err).WithField("email_id", msg.ID).
				Error("[EmailUpserter.UpsertEmail] failed to upsert attachment %s", attachment.ID)
		}
	}

	return nil
}

func (u *EmailUpserter) upsertAttachment(ctx context.Context, emailID string, attachment domain.MessageAttachment) error {
	entity := &out.AttachmentEntity{
		ID:              attachment.ID,
		EmailID:         emailID,
		Name:            attachment.Name,
		MimeType:        attachment.MimeType,
		Size:            attachment.Size,
		Inline:          attachment.Inline,
		ContentID:       attachment.ContentID,
		ContentLocation: attachment.ContentLocation,
		Content:         attachment.Content,
	}
	if err := u.attachments.Upsert(ctx, entity); err != nil {
		return apperr.DatabaseError("upsert attachment", err)
	}
	return nil
}

// mapAddressIDs translates a recipient list into resolved address ids.
// Addresses that failed to resolve are dropped from the set, not fatal.
func mapAddressIDs(addrs []domain.MessageAddress, resolved map[string]*out.EmailAddressEntity) []int64 {
	ids := make([]int64, 0, len(addrs))
	seen := make(map[int64]bool, len(addrs))
	for _, a := range addrs {
		entity, ok := resolved[a.Address]
		if !ok {
			continue
		}
		if !seen[entity.ID] {
			seen[entity.ID] = true
			ids = append(ids, entity.ID)
		}
	}
	return ids
}
