package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"rentroll/internal/types"
)

// ContractRepository provides data access for the contracts table and its
// contract_tenants join table.
type ContractRepository struct {
	db DBTX
}

// NewContractRepository creates a new ContractRepository backed by the given
// database connection (pool or transaction).
func NewContractRepository(db DBTX) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `c.id, c.property_id, c.base_rent, c.monthly_charges,
	c.deposit, c.start_date, c.end_date, c.payment_day, c.status,
	c.created_at, c.updated_at`

func scanContract(row pgx.Row) (*types.Contract, error) {
	var c types.Contract
	err := row.Scan(
		&c.ID,
		&c.PropertyID,
		&c.BaseRent,
		&c.MonthlyCharges,
		&c.Deposit,
		&c.StartDate,
		&c.EndDate,
		&c.PaymentDay,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a contract and its tenant links on the repository's
// connection. The statements are only atomic when that connection is a
// transaction; pool-backed callers go through ContractStore.Create instead.
func (r *ContractRepository) Create(ctx context.Context, c *types.Contract, tenantIDs []string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO contracts (id, property_id, base_rent, monthly_charges, deposit,
		 start_date, end_date, payment_day, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		c.ID,
		c.PropertyID,
		c.BaseRent,
		c.MonthlyCharges,
		c.Deposit,
		c.StartDate,
		c.EndDate,
		c.PaymentDay,
		c.Status,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create contract", err)
	}

	for _, tenantID := range tenantIDs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO contract_tenants (contract_id, tenant_id)
			 VALUES ($1, $2)`,
			c.ID,
			tenantID,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to link tenant to contract", err)
		}
	}
	return nil
}

// GetByID retrieves a contract with its tenants and property hydrated.
func (r *ContractRepository) GetByID(ctx context.Context, id string) (*types.Contract, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts c
		 WHERE c.id = $1`,
		id,
	)

	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundContract, "contract not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve contract", err)
	}

	if err := r.hydrateTenants(ctx, c); err != nil {
		return nil, err
	}

	propRow := r.db.QueryRow(ctx,
		`SELECT `+propertyColumns+`
		 FROM properties p
		 WHERE p.id = $1`,
		c.PropertyID,
	)
	prop, err := scanProperty(propRow)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve contract property", err)
	}
	c.Property = prop

	return c, nil
}

// hydrateTenants loads the tenants linked to the contract.
func (r *ContractRepository) hydrateTenants(ctx context.Context, c *types.Contract) error {
	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants t
		 JOIN contract_tenants ct ON ct.tenant_id = t.id
		 WHERE ct.contract_id = $1
		 ORDER BY t.last_name, t.first_name`,
		c.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to query contract tenants", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to scan contract tenant", err)
		}
		c.Tenants = append(c.Tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "error iterating contract tenants", err)
	}
	return nil
}

// List returns contracts, optionally filtered by status, newest first. It
// fetches limit+1 rows so the caller can detect whether more pages exist.
func (r *ContractRepository) List(ctx context.Context, status types.ContractStatus, limit, offset int) ([]types.Contract, bool, error) {
	query := `SELECT ` + contractColumns + `
		 FROM contracts c`
	args := []any{}
	if status != "" {
		query += ` WHERE c.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY c.created_at DESC, c.id`
	// LIMIT/OFFSET placeholders depend on whether the status filter bound $1.
	if status != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit+1, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to list contracts", err)
	}
	defer rows.Close()

	var contracts []types.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to scan contract", err)
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "error iterating contracts", err)
	}

	hasMore := len(contracts) > limit
	if hasMore {
		contracts = contracts[:limit]
	}
	return contracts, hasMore, nil
}

// Update applies changes to a contract's monetary terms and dates. Status
// transitions go through Terminate or the status recalculation path, not
// this method.
func (r *ContractRepository) Update(ctx context.Context, c *types.Contract) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contracts
		 SET base_rent = $1,
		     monthly_charges = $2,
		     deposit = $3,
		     start_date = $4,
		     end_date = $5,
		     payment_day = $6,
		     updated_at = NOW()
		 WHERE id = $7`,
		c.BaseRent,
		c.MonthlyCharges,
		c.Deposit,
		c.StartDate,
		c.EndDate,
		c.PaymentDay,
		c.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update contract", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundContract, "contract not found", nil)
	}
	return nil
}

// Terminate marks a contract terminated and closes its end date. A contract
// already terminated is reported as a conflict so the caller can surface it;
// a missing contract as not found.
func (r *ContractRepository) Terminate(ctx context.Context, id string, endDate time.Time) error {
	var status types.ContractStatus
	err := r.db.QueryRow(ctx,
		`SELECT status FROM contracts WHERE id = $1`,
		id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodeNotFoundContract, "contract not found", nil)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve contract status", err)
	}
	if status == types.ContractTerminated {
		return types.NewAppError(types.ErrCodeConflictContractTerminated, "contract is already terminated", nil)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE contracts
		 SET status = $1, end_date = $2, updated_at = NOW()
		 WHERE id = $3`,
		types.ContractTerminated,
		endDate,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to terminate contract", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundContract, "contract not found", nil)
	}
	return nil
}
