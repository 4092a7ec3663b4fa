package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rentroll/internal/types"
)

// TenantRepository provides data access for the tenants table.
type TenantRepository struct {
	db DBTX
}

// NewTenantRepository creates a new TenantRepository backed by the given
// database connection (pool or transaction).
func NewTenantRepository(db DBTX) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `t.id, t.first_name, t.last_name, t.email, t.phone,
	t.created_at, t.updated_at`

func scanTenant(row pgx.Row) (*types.Tenant, error) {
	var t types.Tenant
	var phone *string

	err := row.Scan(
		&t.ID,
		&t.FirstName,
		&t.LastName,
		&t.Email,
		&phone,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		t.Phone = *phone
	}
	return &t, nil
}

// Create inserts a new tenant record. The caller must set the ID
// (prefixed UUID, e.g. "tnt_...") and required fields before calling.
func (r *TenantRepository) Create(ctx context.Context, t *types.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, first_name, last_name, email, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		t.ID,
		t.FirstName,
		t.LastName,
		t.Email,
		nilIfEmpty(t.Phone),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create tenant", err)
	}
	return nil
}

// GetByID retrieves a tenant by its ID.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*types.Tenant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants t
		 WHERE t.id = $1`,
		id,
	)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTenant, "tenant not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve tenant", err)
	}
	return t, nil
}

// GetByIDs retrieves the tenants whose IDs appear in ids, in arbitrary
// order. Missing IDs are not an error; the caller compares lengths when it
// needs all of them to exist.
func (r *TenantRepository) GetByIDs(ctx context.Context, ids []string) ([]types.Tenant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants t
		 WHERE t.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query tenants", err)
	}
	defer rows.Close()

	var tenants []types.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan tenant", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating tenants", err)
	}
	return tenants, nil
}

// List returns tenants ordered by last name. It fetches limit+1 rows so the
// caller can detect whether more pages exist.
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]types.Tenant, bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants t
		 ORDER BY t.last_name, t.first_name, t.id
		 LIMIT $1 OFFSET $2`,
		limit+1,
		offset,
	)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to list tenants", err)
	}
	defer rows.Close()

	var tenants []types.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to scan tenant", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "error iterating tenants", err)
	}

	hasMore := len(tenants) > limit
	if hasMore {
		tenants = tenants[:limit]
	}
	return tenants, hasMore, nil
}

// Update applies changes to a tenant record.
func (r *TenantRepository) Update(ctx context.Context, t *types.Tenant) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants
		 SET first_name = $1,
		     last_name = $2,
		     email = $3,
		     phone = $4,
		     updated_at = NOW()
		 WHERE id = $5`,
		t.FirstName,
		t.LastName,
		t.Email,
		nilIfEmpty(t.Phone),
		t.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update tenant", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundTenant, "tenant not found", nil)
	}
	return nil
}

// Delete removes a tenant.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete tenant", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundTenant, "tenant not found", nil)
	}
	return nil
}
