package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rentroll/internal/types"
)

// PropertyRepository provides data access for the properties table.
type PropertyRepository struct {
	db DBTX
}

// NewPropertyRepository creates a new PropertyRepository backed by the given
// database connection (pool or transaction).
func NewPropertyRepository(db DBTX) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// propertyColumns defines the standard set of columns selected for property
// queries. Used consistently across all query methods to avoid column drift.
const propertyColumns = `p.id, p.address, p.city, p.postal_code, p.kind,
	p.surface_m2, p.rooms, p.notes, p.created_at, p.updated_at`

func scanProperty(row pgx.Row) (*types.Property, error) {
	var p types.Property
	var notes *string

	err := row.Scan(
		&p.ID,
		&p.Address,
		&p.City,
		&p.PostalCode,
		&p.Kind,
		&p.SurfaceM2,
		&p.Rooms,
		&notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		p.Notes = *notes
	}
	return &p, nil
}

// Create inserts a new property record. The caller must set the ID
// (prefixed UUID, e.g. "prop_...") and required fields before calling.
func (r *PropertyRepository) Create(ctx context.Context, p *types.Property) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO properties (id, address, city, postal_code, kind, surface_m2,
		 rooms, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		p.ID,
		p.Address,
		p.City,
		p.PostalCode,
		p.Kind,
		p.SurfaceM2,
		p.Rooms,
		nilIfEmpty(p.Notes),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create property", err)
	}
	return nil
}

// GetByID retrieves a property by its ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*types.Property, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+propertyColumns+`
		 FROM properties p
		 WHERE p.id = $1`,
		id,
	)

	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProperty, "property not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve property", err)
	}
	return p, nil
}

// List returns properties ordered by creation time, newest first. It fetches
// limit+1 rows so the caller can detect whether more pages exist.
func (r *PropertyRepository) List(ctx context.Context, limit, offset int) ([]types.Property, bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+propertyColumns+`
		 FROM properties p
		 ORDER BY p.created_at DESC, p.id
		 LIMIT $1 OFFSET $2`,
		limit+1,
		offset,
	)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to list properties", err)
	}
	defer rows.Close()

	var properties []types.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to scan property", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "error iterating properties", err)
	}

	hasMore := len(properties) > limit
	if hasMore {
		properties = properties[:limit]
	}
	return properties, hasMore, nil
}

// Update applies changes to a property record. Only mutable fields are
// written; the updated_at timestamp is set by the database.
func (r *PropertyRepository) Update(ctx context.Context, p *types.Property) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE properties
		 SET address = $1,
		     city = $2,
		     postal_code = $3,
		     kind = $4,
		     surface_m2 = $5,
		     rooms = $6,
		     notes = $7,
		     updated_at = NOW()
		 WHERE id = $8`,
		p.Address,
		p.City,
		p.PostalCode,
		p.Kind,
		p.SurfaceM2,
		p.Rooms,
		nilIfEmpty(p.Notes),
		p.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update property", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProperty, "property not found", nil)
	}
	return nil
}

// Delete removes a property. A property with an active contract cannot be
// deleted; the check and the delete race window is closed by the FK from
// contracts to properties.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	var activeContracts int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM contracts
		 WHERE property_id = $1 AND status = 'active'`,
		id,
	).Scan(&activeContracts)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to check property contracts", err)
	}
	if activeContracts > 0 {
		return types.NewAppError(types.ErrCodeConflictPropertyOccupied,
			"property has an active contract and cannot be deleted", nil)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete property", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProperty, "property not found", nil)
	}
	return nil
}
