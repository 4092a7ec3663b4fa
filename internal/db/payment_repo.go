package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rentroll/internal/types"
)

// PaymentRepository provides data access for the payments table. Recording
// a payment also adjusts the parent rent's paid amount and status; the
// handler composes this repository with RentRepository inside a transaction.
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new PaymentRepository backed by the given
// database connection (pool or transaction).
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `pay.id, pay.rent_id, pay.amount, pay.paid_at,
	pay.method, pay.payer, pay.reference, pay.created_at`

func scanPayment(row pgx.Row) (*types.Payment, error) {
	var p types.Payment
	var payer, reference *string

	err := row.Scan(
		&p.ID,
		&p.RentID,
		&p.Amount,
		&p.PaidAt,
		&p.Method,
		&payer,
		&reference,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if payer != nil {
		p.Payer = *payer
	}
	if reference != nil {
		p.Reference = *reference
	}
	return &p, nil
}

// Create inserts a payment record. The caller must set the ID (prefixed
// UUID, e.g. "pay_...") and required fields before calling.
func (r *PaymentRepository) Create(ctx context.Context, p *types.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (id, rent_id, amount, paid_at, method, payer, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		p.ID,
		p.RentID,
		p.Amount,
		p.PaidAt,
		p.Method,
		nilIfEmpty(p.Payer),
		nilIfEmpty(p.Reference),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create payment", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*types.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments pay
		 WHERE pay.id = $1`,
		id,
	)

	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPayment, "payment not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve payment", err)
	}
	return p, nil
}

// ListByRent returns the payments recorded against a rent, oldest first.
func (r *PaymentRepository) ListByRent(ctx context.Context, rentID string) ([]types.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments pay
		 WHERE pay.rent_id = $1
		 ORDER BY pay.paid_at, pay.id`,
		rentID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list payments", err)
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

// Delete removes a payment record. The caller is responsible for adjusting
// the parent rent's amounts inside the same transaction.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete payment", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPayment, "payment not found", nil)
	}
	return nil
}
