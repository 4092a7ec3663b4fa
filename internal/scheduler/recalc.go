package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentroll/internal/types"
)

// RecalculatorStore abstracts the persistence operations the status
// recalculation task needs.
type RecalculatorStore interface {
	// BeginTx starts the transaction covering a full recalculation pass.
	BeginTx(ctx context.Context) (RecalculatorTx, error)
}

// RecalculatorTx is the transactional scope for one recalculation pass. A
// single transaction covers the whole pass so a reader never observes a
// half-recalculated table.
type RecalculatorTx interface {
	// ListRentStatusRows returns the status-relevant fields of every rent.
	ListRentStatusRows(ctx context.Context) ([]types.RentStatusRow, error)
	UpdateRentStatus(ctx context.Context, rentID string, status types.RentStatus) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// StatusRecalculator re-derives every rent's payment status from its amounts
// and due date. The status formula itself lives in types.ComputeRentStatus;
// this task applies it across the table and persists only the rows whose
// status actually changed.
type StatusRecalculator struct {
	store  RecalculatorStore
	logger *slog.Logger
}

// NewStatusRecalculator creates a StatusRecalculator.
func NewStatusRecalculator(store RecalculatorStore, logger *slog.Logger) *StatusRecalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusRecalculator{
		store:  store,
		logger: logger,
	}
}

// Run executes one recalculation pass. Every date comparison uses the now
// snapshot taken by the scheduler, so all rents are judged against the same
// instant. Running twice in a row with the same clock produces no writes the
// second time.
func (r *StatusRecalculator) Run(ctx context.Context, now time.Time) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning recalculation transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.ListRentStatusRows(ctx)
	if err != nil {
		return fmt.Errorf("listing rents for recalculation: %w", err)
	}

	updated := 0
	for _, row := range rows {
		next := types.ComputeRentStatus(row.AmountDue, row.AmountPaid, row.DueDate, now)
		if next == row.Status {
			continue
		}
		if err := tx.UpdateRentStatus(ctx, row.ID, next); err != nil {
			return fmt.Errorf("updating status of rent %s: %w", row.ID, err)
		}
		r.logger.InfoContext(ctx, "rent status changed",
			"rent_id", row.ID,
			"contract_id", row.ContractID,
			"from", row.Status,
			"to", next,
		)
		updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing recalculation: %w", err)
	}

	r.logger.InfoContext(ctx, "rent status recalculation complete",
		"rents_scanned", len(rows),
		"rents_updated", updated,
	)
	return nil
}
