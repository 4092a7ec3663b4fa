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

func TestContractRepository_Create_WithTenantLinks(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	c := &types.Contract{
		ID:         "ctr_123",
		PropertyID: "prop_1",
		BaseRent:   850,
		PaymentDay: 5,
		Status:     types.ContractActive,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// One contract insert plus one link insert per tenant.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Times(3)

	err := repo.Create(ctx, c, []string{"tnt_1", "tnt_2"})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestContractRepository_Create_LinkFailure(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	c := &types.Contract{ID: "ctr_123", PropertyID: "prop_1", Status: types.ContractActive}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("foreign key violation")).Once()

	err := repo.Create(ctx, c, []string{"tnt_missing"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	db.AssertExpectations(t)
}

func TestContractRepository_Terminate_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	statusRow := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*types.ContractStatus) = types.ContractActive
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"ctr_123"}).Return(statusRow)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.Terminate(ctx, "ctr_123", time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestContractRepository_Terminate_AlreadyTerminated(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	statusRow := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*types.ContractStatus) = types.ContractTerminated
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"ctr_123"}).Return(statusRow)

	err := repo.Terminate(ctx, "ctr_123", time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictContractTerminated, appErr.Code)
	db.AssertExpectations(t)
}

func TestContractRepository_Terminate_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	statusRow := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"ctr_missing"}).Return(statusRow)

	err := repo.Terminate(ctx, "ctr_missing", time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundContract, appErr.Code)
	db.AssertExpectations(t)
}

func TestContractRepository_List_StatusFilter(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContractRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := newMockRows(func(dest ...any) error {
		*dest[0].(*string) = "ctr_1"
		*dest[1].(*string) = "prop_1"
		*dest[2].(*float64) = 850
		*dest[3].(*float64) = 100
		*dest[4].(*float64) = 1700
		*dest[5].(*time.Time) = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		*dest[6].(**time.Time) = nil
		*dest[7].(*int) = 5
		*dest[8].(*types.ContractStatus) = types.ContractActive
		*dest[9].(*time.Time) = now
		*dest[10].(*time.Time) = now
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"),
		[]any{types.ContractActive, 21, 0}).Return(rows, nil)

	contracts, hasMore, err := repo.List(ctx, types.ContractActive, 20, 0)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, contracts, 1)
	assert.Equal(t, "ctr_1", contracts[0].ID)
	assert.Equal(t, 950.0, contracts[0].MonthlyTotal())
	db.AssertExpectations(t)
}
