package sync

import (
	"context"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/apperr"
	"sync_server/pkg/logger"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
)

// AddressResolver normalizes and deduplicates participant addresses and
// upserts them per account.
//
// The resolution cache is scoped to one batch run for one account: create a
// fresh resolver per SyncBatch call and never share one across accounts.
// The read-then-write upsert is not atomic at the storage level, so the
// caller must not resolve the same account's addresses from parallel
// workers.
type AddressResolver struct {
	repo  out.AddressRepository
	ids   *snowflake.Generator
	cache map[string]*out.EmailAddressEntity
}

// NewAddressResolver creates a resolver with an empty batch-scoped cache.
func NewAddressResolver(repo out.AddressRepository, ids *snowflake.Generator) *AddressResolver {
	return &AddressResolver{
		repo:  repo,
		ids:   ids,
		cache: make(map[string]*out.EmailAddressEntity),
	}
}

// Resolve upserts every distinct address in addrs for the account and
// returns a mapping from address string to resolved record. An address
// whose upsert fails is logged and absent from the result; resolution of
// the remaining addresses continues.
func (r *AddressResolver) Resolve(ctx context.Context, accountID uuid.UUID, addrs []domain.MessageAddress) map[string]*out.EmailAddressEntity {
	// Dedupe by address string before touching storage; later sightings
	// win for display metadata, matching last-write-wins upserts.
	distinct := make(map[string]domain.MessageAddress)
	order := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Address == "" {
			continue
		}
		if _, seen := distinct[a.Address]; !seen {
			order = append(order, a.Address)
		}
		distinct[a.Address] = a
	}

	resolved := make(map[string]*out.EmailAddressEntity, len(distinct))
	for _, address := range order {
		entity, err := r.resolveOne(ctx, accountID, distinct[address])
		if err != nil {
			logger.WithError(err).WithField("account_id", accountID.String()).
				Error("[AddressResolver.Resolve] failed to upsert address %s", address)
			continue
		}
		resolved[address] = entity
	}
	return resolved
}

func (r *AddressResolver) resolveOne(ctx context.Context, accountID uuid.UUID, addr domain.MessageAddress) (*out.EmailAddressEntity, error) {
	if cached, ok := r.cache[addr.Address]; ok {
		return cached, nil
	}

	now := time.Now().UTC()

	existing, err := r.repo.GetByAccountAddress(ctx, accountID, addr.Address)
	if err == nil {
		existing.Name = addr.Name
		existing.Raw = addr.Raw
		existing.UpdatedAt = now
		if err := r.repo.Update(ctx, existing); err != nil {
			return nil, apperr.DatabaseError("update email address", err)
		}
		r.cache[addr.Address] = existing
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, apperr.DatabaseError("find email address", err)
	}

	id, err := r.ids.Generate()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternalError, "generate address id")
	}

	entity := &out.EmailAddressEntity{
		ID:        id,
		AccountID: accountID,
		Address:   addr.Address,
		Name:      addr.Name,
		Raw:       addr.Raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Create(ctx, entity); err != nil {
		return nil, apperr.DatabaseError("create email address", err)
	}
	r.cache[addr.Address] = entity
	return entity, nil
}
