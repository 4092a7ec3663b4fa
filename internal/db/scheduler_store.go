package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rentroll/internal/scheduler"
	"rentroll/internal/types"
)

// GenerationStore implements scheduler.GeneratorStore on top of a pgx pool.
type GenerationStore struct {
	pool *pgxpool.Pool
}

// NewGenerationStore creates a GenerationStore.
func NewGenerationStore(pool *pgxpool.Pool) *GenerationStore {
	return &GenerationStore{pool: pool}
}

// ListActiveContractsForPeriod returns every contract that is active at now,
// pre-joined with any rent already recorded for (month, year), the property
// address, and the tenant names used in run summaries.
func (s *GenerationStore) ListActiveContractsForPeriod(ctx context.Context, month time.Month, year int, now time.Time) ([]types.ContractBilling, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.property_id, c.base_rent, c.monthly_charges, c.deposit,
		        c.start_date, c.end_date, c.payment_day, c.status,
		        c.created_at, c.updated_at,
		        p.address,
		        COALESCE(array_agg(t.first_name || ' ' || t.last_name ORDER BY t.last_name)
		                 FILTER (WHERE t.id IS NOT NULL), '{}'),
		        r.id, r.amount_due, r.amount_paid, r.status
		 FROM contracts c
		 JOIN properties p ON p.id = c.property_id
		 LEFT JOIN contract_tenants ct ON ct.contract_id = c.id
		 LEFT JOIN tenants t ON t.id = ct.tenant_id
		 LEFT JOIN rents r ON r.contract_id = c.id
		      AND r.period_month = $1 AND r.period_year = $2
		 WHERE c.status = 'active'
		   AND c.start_date <= $3
		   AND (c.end_date IS NULL OR c.end_date >= $3)
		 GROUP BY c.id, p.address, r.id, r.amount_due, r.amount_paid, r.status
		 ORDER BY c.created_at, c.id`,
		int(month),
		year,
		now,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query active contracts", err)
	}
	defer rows.Close()

	var result []types.ContractBilling
	for rows.Next() {
		var cb types.ContractBilling
		var rentID *string
		var rentDue, rentPaid *float64
		var rentStatus *types.RentStatus

		if err := rows.Scan(
			&cb.Contract.ID,
			&cb.Contract.PropertyID,
			&cb.Contract.BaseRent,
			&cb.Contract.MonthlyCharges,
			&cb.Contract.Deposit,
			&cb.Contract.StartDate,
			&cb.Contract.EndDate,
			&cb.Contract.PaymentDay,
			&cb.Contract.Status,
			&cb.Contract.CreatedAt,
			&cb.Contract.UpdatedAt,
			&cb.PropertyAddress,
			&cb.TenantNames,
			&rentID,
			&rentDue,
			&rentPaid,
			&rentStatus,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan contract billing row", err)
		}

		if rentID != nil {
			cb.ExistingRent = &types.Rent{
				ID:          *rentID,
				ContractID:  cb.Contract.ID,
				PeriodMonth: int(month),
				PeriodYear:  year,
			}
			if rentDue != nil {
				cb.ExistingRent.AmountDue = *rentDue
			}
			if rentPaid != nil {
				cb.ExistingRent.AmountPaid = *rentPaid
			}
			if rentStatus != nil {
				cb.ExistingRent.Status = *rentStatus
			}
		}
		result = append(result, cb)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating contract billing rows", err)
	}
	return result, nil
}

// BeginTx starts a transaction scoped to one rent creation.
func (s *GenerationStore) BeginTx(ctx context.Context) (scheduler.GeneratorTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	return &generationTx{rents: NewRentRepository(tx), commit: tx.Commit, rollback: tx.Rollback}, nil
}

type generationTx struct {
	rents    *RentRepository
	commit   func(context.Context) error
	rollback func(context.Context) error
}

func (t *generationTx) CreateRent(ctx context.Context, rent *types.Rent) error {
	return t.rents.Create(ctx, rent)
}

func (t *generationTx) Commit(ctx context.Context) error   { return t.commit(ctx) }
func (t *generationTx) Rollback(ctx context.Context) error { return t.rollback(ctx) }

// RecalculationStore implements scheduler.RecalculatorStore on top of a pgx
// pool.
type RecalculationStore struct {
	pool *pgxpool.Pool
}

// NewRecalculationStore creates a RecalculationStore.
func NewRecalculationStore(pool *pgxpool.Pool) *RecalculationStore {
	return &RecalculationStore{pool: pool}
}

// BeginTx starts the transaction covering a full recalculation pass.
func (s *RecalculationStore) BeginTx(ctx context.Context) (scheduler.RecalculatorTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	return &recalculationTx{db: tx, commit: tx.Commit, rollback: tx.Rollback}, nil
}

type recalculationTx struct {
	db       DBTX
	commit   func(context.Context) error
	rollback func(context.Context) error
}

// ListRentStatusRows returns the status-relevant projection of every rent.
func (t *recalculationTx) ListRentStatusRows(ctx context.Context) ([]types.RentStatusRow, error) {
	rows, err := t.db.Query(ctx,
		`SELECT id, contract_id, amount_due, amount_paid, due_date, status
		 FROM rents
		 ORDER BY id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query rent status rows", err)
	}
	defer rows.Close()

	var result []types.RentStatusRow
	for rows.Next() {
		var row types.RentStatusRow
		if err := rows.Scan(
			&row.ID,
			&row.ContractID,
			&row.AmountDue,
			&row.AmountPaid,
			&row.DueDate,
			&row.Status,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rent status row", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating rent status rows", err)
	}
	return result, nil
}

// UpdateRentStatus sets a single rent's status.
func (t *recalculationTx) UpdateRentStatus(ctx context.Context, rentID string, status types.RentStatus) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE rents SET status = $1, updated_at = NOW() WHERE id = $2`,
		status,
		rentID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update rent status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRent, "rent not found", nil)
	}
	return nil
}

func (t *recalculationTx) Commit(ctx context.Context) error   { return t.commit(ctx) }
func (t *recalculationTx) Rollback(ctx context.Context) error { return t.rollback(ctx) }
