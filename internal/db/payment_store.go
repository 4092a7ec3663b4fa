package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rentroll/internal/types"
)

// PaymentStore records payments transactionally: inserting the payment row,
// bumping the parent rent's paid amount, and re-deriving its status are one
// atomic unit.
type PaymentStore struct {
	pool *pgxpool.Pool
}

// NewPaymentStore creates a PaymentStore.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// RecordPayment inserts the payment and updates the parent rent's amounts
// and status in a single transaction. The rent row is locked for the
// duration so concurrent payments against the same rent serialize. Returns
// the updated rent.
func (s *PaymentStore) RecordPayment(ctx context.Context, payment *types.Payment, now time.Time) (*types.Rent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rents := NewRentRepository(tx)
	payments := NewPaymentRepository(tx)

	rent, err := rents.GetForUpdate(ctx, payment.RentID)
	if err != nil {
		return nil, err
	}

	if err := payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	rent.AmountPaid += payment.Amount
	rent.Status = types.ComputeRentStatus(rent.AmountDue, rent.AmountPaid, rent.DueDate, now)
	if err := rents.UpdateAmountPaid(ctx, rent.ID, rent.AmountPaid, rent.Status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to commit payment", err)
	}

	rent.Payments = append(rent.Payments, *payment)
	return rent, nil
}

// RemovePayment deletes a payment and rolls its amount back out of the
// parent rent, re-deriving the status, in a single transaction.
func (s *PaymentStore) RemovePayment(ctx context.Context, paymentID string, now time.Time) (*types.Rent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rents := NewRentRepository(tx)
	payments := NewPaymentRepository(tx)

	payment, err := payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	rent, err := rents.GetForUpdate(ctx, payment.RentID)
	if err != nil {
		return nil, err
	}

	if err := payments.Delete(ctx, paymentID); err != nil {
		return nil, err
	}

	rent.AmountPaid -= payment.Amount
	if rent.AmountPaid < 0 {
		rent.AmountPaid = 0
	}
	rent.Status = types.ComputeRentStatus(rent.AmountDue, rent.AmountPaid, rent.DueDate, now)
	if err := rents.UpdateAmountPaid(ctx, rent.ID, rent.AmountPaid, rent.Status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to commit payment removal", err)
	}
	return rent, nil
}
