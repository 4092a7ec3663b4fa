package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"rentroll/internal/types"
)

// RentRepository provides data access for the rents table.
type RentRepository struct {
	db DBTX
}

// NewRentRepository creates a new RentRepository backed by the given
// database connection (pool or transaction).
func NewRentRepository(db DBTX) *RentRepository {
	return &RentRepository{db: db}
}

const rentColumns = `r.id, r.contract_id, r.period_month, r.period_year,
	r.amount_due, r.amount_paid, r.due_date, r.status, r.note,
	r.created_at, r.updated_at`

func scanRent(row pgx.Row) (*types.Rent, error) {
	var rent types.Rent
	var note *string

	err := row.Scan(
		&rent.ID,
		&rent.ContractID,
		&rent.PeriodMonth,
		&rent.PeriodYear,
		&rent.AmountDue,
		&rent.AmountPaid,
		&rent.DueDate,
		&rent.Status,
		&note,
		&rent.CreatedAt,
		&rent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if note != nil {
		rent.Note = *note
	}
	return &rent, nil
}

// Create inserts a rent record. The rents table carries a unique constraint
// on (contract_id, period_month, period_year); a duplicate period is
// reported as a conflict.
func (r *RentRepository) Create(ctx context.Context, rent *types.Rent) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO rents (id, contract_id, period_month, period_year, amount_due,
		 amount_paid, due_date, status, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 ON CONFLICT (contract_id, period_month, period_year) DO NOTHING`,
		rent.ID,
		rent.ContractID,
		rent.PeriodMonth,
		rent.PeriodYear,
		rent.AmountDue,
		rent.AmountPaid,
		rent.DueDate,
		rent.Status,
		nilIfEmpty(rent.Note),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create rent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictRentExists,
			"a rent already exists for this contract and period", nil)
	}
	return nil
}

// GetByID retrieves a rent with its payments hydrated.
func (r *RentRepository) GetByID(ctx context.Context, id string) (*types.Rent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+rentColumns+`
		 FROM rents r
		 WHERE r.id = $1`,
		id,
	)

	rent, err := scanRent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRent, "rent not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve rent", err)
	}

	payments, err := r.listPayments(ctx, rent.ID)
	if err != nil {
		return nil, err
	}
	rent.Payments = payments
	return rent, nil
}

// GetForUpdate retrieves a rent's amount fields with a row lock, for use
// inside a payment-recording transaction.
func (r *RentRepository) GetForUpdate(ctx context.Context, id string) (*types.Rent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+rentColumns+`
		 FROM rents r
		 WHERE r.id = $1
		 FOR UPDATE`,
		id,
	)

	rent, err := scanRent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRent, "rent not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to lock rent", err)
	}
	return rent, nil
}

// UpdateAmountPaid sets a rent's paid amount and status. Used by the
// payment-recording transaction after recomputing the status.
func (r *RentRepository) UpdateAmountPaid(ctx context.Context, id string, amountPaid float64, status types.RentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rents
		 SET amount_paid = $1, status = $2, updated_at = NOW()
		 WHERE id = $3`,
		amountPaid,
		status,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update rent amounts", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRent, "rent not found", nil)
	}
	return nil
}

// UpdateNote replaces a rent's free-form note.
func (r *RentRepository) UpdateNote(ctx context.Context, id string, note string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rents
		 SET note = $1, updated_at = NOW()
		 WHERE id = $2`,
		note,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update rent note", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRent, "rent not found", nil)
	}
	return nil
}

// RentFilter narrows List results. Zero values mean no filtering on that
// dimension.
type RentFilter struct {
	ContractID  string
	Status      types.RentStatus
	PeriodMonth int
	PeriodYear  int
}

// List returns rents matching the filter, most recent period first. It
// fetches limit+1 rows so the caller can detect whether more pages exist.
func (r *RentRepository) List(ctx context.Context, filter RentFilter, limit, offset int) ([]types.Rent, bool, error) {
	query := `SELECT ` + rentColumns + ` FROM rents r WHERE 1=1`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return "$" + strconv.Itoa(n)
	}

	if filter.ContractID != "" {
		query += ` AND r.contract_id = ` + arg(filter.ContractID)
	}
	if filter.Status != "" {
		query += ` AND r.status = ` + arg(filter.Status)
	}
	if filter.PeriodMonth != 0 {
		query += ` AND r.period_month = ` + arg(filter.PeriodMonth)
	}
	if filter.PeriodYear != 0 {
		query += ` AND r.period_year = ` + arg(filter.PeriodYear)
	}
	query += ` ORDER BY r.period_year DESC, r.period_month DESC, r.id
		 LIMIT ` + arg(limit+1) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to list rents", err)
	}
	defer rows.Close()

	var rents []types.Rent
	for rows.Next() {
		rent, err := scanRent(rows)
		if err != nil {
			return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rent", err)
		}
		rents = append(rents, *rent)
	}
	if err := rows.Err(); err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "error iterating rents", err)
	}

	hasMore := len(rents) > limit
	if hasMore {
		rents = rents[:limit]
	}
	return rents, hasMore, nil
}

// RentRollRow is one line of the rent-roll export: a rent joined with its
// contract, property, and tenant display fields.
type RentRollRow struct {
	RentID          string
	ContractID      string
	PropertyAddress string
	TenantNames     string
	PeriodMonth     int
	PeriodYear      int
	AmountDue       float64
	AmountPaid      float64
	DueDate         time.Time
	Status          types.RentStatus
}

// RentRoll returns the export rows for a billing period, ordered by property
// address.
func (r *RentRepository) RentRoll(ctx context.Context, month, year int) ([]RentRollRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.contract_id, p.address,
		        COALESCE(string_agg(t.first_name || ' ' || t.last_name, ', ' ORDER BY t.last_name), ''),
		        r.period_month, r.period_year, r.amount_due, r.amount_paid,
		        r.due_date, r.status
		 FROM rents r
		 JOIN contracts c ON c.id = r.contract_id
		 JOIN properties p ON p.id = c.property_id
		 LEFT JOIN contract_tenants ct ON ct.contract_id = c.id
		 LEFT JOIN tenants t ON t.id = ct.tenant_id
		 WHERE r.period_month = $1 AND r.period_year = $2
		 GROUP BY r.id, p.address
		 ORDER BY p.address, r.id`,
		month,
		year,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query rent roll", err)
	}
	defer rows.Close()

	var result []RentRollRow
	for rows.Next() {
		var row RentRollRow
		if err := rows.Scan(
			&row.RentID,
			&row.ContractID,
			&row.PropertyAddress,
			&row.TenantNames,
			&row.PeriodMonth,
			&row.PeriodYear,
			&row.AmountDue,
			&row.AmountPaid,
			&row.DueDate,
			&row.Status,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rent roll row", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating rent roll", err)
	}
	return result, nil
}

// listPayments loads the payments recorded against a rent, oldest first.
func (r *RentRepository) listPayments(ctx context.Context, rentID string) ([]types.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments pay
		 WHERE pay.rent_id = $1
		 ORDER BY pay.paid_at, pay.id`,
		rentID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query rent payments", err)
	}
	defer rows.Close()

	var payments []types.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan payment", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating payments", err)
	}
	return payments, nil
}

