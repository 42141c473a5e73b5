// Package persistence provides database adapters implementing outbound ports.
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
)

// =============================================================================
// Email Address Adapter (PostgreSQL)
// =============================================================================

// AddressAdapter implements out.AddressRepository using PostgreSQL.
// Rows are unique per (account_id, address); the pipeline never deletes them.
type AddressAdapter struct {
	db *sqlx.DB
}

// NewAddressAdapter creates a new AddressAdapter.
func NewAddressAdapter(db *sqlx.DB) *AddressAdapter {
	return &AddressAdapter{db: db}
}

// =============================================================================
// Database Row Mapping
// =============================================================================

type addressRow struct {
	ID        int64          `db:"id"`
	AccountID uuid.UUID      `db:"account_id"`
	Address   string         `db:"address"`
	Name      sql.NullString `db:"name"`
	Raw       sql.NullString `db:"raw"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *addressRow) toEntity() *out.EmailAddressEntity {
	entity := &out.EmailAddressEntity{
		ID:        r.ID,
		AccountID: r.AccountID,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Name.Valid {
		entity.Name = r.Name.String
	}
	if r.Raw.Valid {
		entity.Raw = r.Raw.String
	}
	return entity
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// =============================================================================
// Operations
// =============================================================================

// GetByAccountAddress looks up the unique (account, address) row.
func (a *AddressAdapter) GetByAccountAddress(ctx context.Context, accountID uuid.UUID, address string) (*out.EmailAddressEntity, error) {
	var row addressRow
	err := a.db.QueryRowxContext(ctx, `
		SELECT id, account_id, address, name, raw, created_at, updated_at
		FROM email_addresses
		WHERE account_id = $1 AND address = $2`,
		accountID, address).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("email address")
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// Create inserts a new address row.
func (a *AddressAdapter) Create(ctx context.Context, addr *out.EmailAddressEntity) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO email_addresses (id, account_id, address, name, raw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		addr.ID,
		addr.AccountID,
		addr.Address,
		nullString(addr.Name),
		nullString(addr.Raw),
		addr.CreatedAt,
		addr.UpdatedAt,
	)
	return err
}

// Update refreshes the display metadata of an existing row.
func (a *AddressAdapter) Update(ctx context.Context, addr *out.EmailAddressEntity) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE email_addresses
		SET name = $1, raw = $2, updated_at = $3
		WHERE id = $4`,
		nullString(addr.Name),
		nullString(addr.Raw),
		addr.UpdatedAt,
		addr.ID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("email address")
	}
	return nil
}

// Ensure AddressAdapter implements out.AddressRepository
var _ out.AddressRepository = (*AddressAdapter)(nil)
