package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentroll/internal/types"
)

// fakeTx implements pgx.Tx over a mockDBTX, recording the commit/rollback
// outcome so tests can assert on it.
type fakeTx struct {
	db         DBTX
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, arguments...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (b *fakeBeginner) Begin(_ context.Context) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

// newContractStoreForTest wires a ContractStore whose transactions execute on
// txDB. The embedded repository is given a separate mock with no expectations,
// so any statement reaching the pool instead of the transaction fails the
// test.
func newContractStoreForTest(txDB DBTX) (*ContractStore, *fakeTx) {
	tx := &fakeTx{db: txDB}
	store := &ContractStore{
		ContractRepository: NewContractRepository(new(mockDBTX)),
		db:                 &fakeBeginner{tx: tx},
	}
	return store, tx
}

func storeContract() *types.Contract {
	return &types.Contract{
		ID:         "ctr_123",
		PropertyID: "prop_1",
		BaseRent:   850,
		PaymentDay: 5,
		Status:     types.ContractActive,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, fragment)
	})
}

func TestContractStore_Create_CommitsContractAndLinks(t *testing.T) {
	txDB := new(mockDBTX)
	store, tx := newContractStoreForTest(txDB)
	ctx := context.Background()

	txDB.On("Exec", ctx, sqlContains("INSERT INTO contracts"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	txDB.On("Exec", ctx, sqlContains("INSERT INTO contract_tenants"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Times(2)

	err := store.Create(ctx, storeContract(), []string{"tnt_1", "tnt_2"})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	txDB.AssertExpectations(t)
}

func TestContractStore_Create_RollsBackOnLinkFailure(t *testing.T) {
	txDB := new(mockDBTX)
	store, tx := newContractStoreForTest(txDB)
	ctx := context.Background()

	// The contract insert succeeds; the tenant link insert fails. The
	// contract row must not survive on its own.
	txDB.On("Exec", ctx, sqlContains("INSERT INTO contracts"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	txDB.On("Exec", ctx, sqlContains("INSERT INTO contract_tenants"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("foreign key violation")).Once()

	err := store.Create(ctx, storeContract(), []string{"tnt_missing"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	txDB.AssertExpectations(t)
}

func TestContractStore_Create_BeginFailure(t *testing.T) {
	store := &ContractStore{
		ContractRepository: NewContractRepository(new(mockDBTX)),
		db:                 &fakeBeginner{beginErr: errors.New("pool exhausted")},
	}

	err := store.Create(context.Background(), storeContract(), []string{"tnt_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
