package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentroll/internal/types"
)

// txBeginner is the transaction-opening surface of pgxpool.Pool.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ContractStore is the pool-backed contract data access used by the API. It
// embeds ContractRepository for reads and single-statement writes, and
// overrides Create so the contract row and its contract_tenants links commit
// or roll back together.
type ContractStore struct {
	*ContractRepository
	db txBeginner
}

// NewContractStore creates a ContractStore backed by the given pool.
func NewContractStore(pool *pgxpool.Pool) *ContractStore {
	return &ContractStore{
		ContractRepository: NewContractRepository(pool),
		db:                 pool,
	}
}

// Create inserts a contract and its tenant links in a single transaction. A
// failed link insert leaves no orphan contract row behind.
func (s *ContractStore) Create(ctx context.Context, c *types.Contract, tenantIDs []string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := NewContractRepository(tx).Create(ctx, c, tenantIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit contract", err)
	}
	return nil
}
