package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentroll/internal/types"
)

func TestPaymentRepository_Create_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(ctx, &types.Payment{
		ID:     "pay_123",
		RentID: "rent_1",
		Amount: 400,
		PaidAt: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		Method: types.PaymentTransfer,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestPaymentRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"pay_missing"}).Return(row)

	_, err := repo.GetByID(ctx, "pay_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPayment, appErr.Code)
	db.AssertExpectations(t)
}

func TestPaymentRepository_ListByRent_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	paidAt := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	rows := newMockRows(func(dest ...any) error {
		*dest[0].(*string) = "pay_1"
		*dest[1].(*string) = "rent_1"
		*dest[2].(*float64) = 400
		*dest[3].(*time.Time) = paidAt
		*dest[4].(*types.PaymentMethod) = types.PaymentTransfer
		payer := "Alex Morgan"
		*dest[5].(**string) = &payer
		*dest[6].(**string) = nil
		*dest[7].(*time.Time) = paidAt
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"rent_1"}).Return(rows, nil)

	payments, err := repo.ListByRent(ctx, "rent_1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 400.0, payments[0].Amount)
	assert.Equal(t, "Alex Morgan", payments[0].Payer)
	db.AssertExpectations(t)
}

func TestPaymentRepository_Delete_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"pay_missing"}).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.Delete(ctx, "pay_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPayment, appErr.Code)
	db.AssertExpectations(t)
}
