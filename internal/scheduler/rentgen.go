// This file implements the generate-missing-rents task. For every active
// contract whose payment day has passed in the current billing period and
// which has no rent record for that period yet, it creates one.
//
// Key behaviors:
//   - The wall clock is read once at the start of the run; the whole batch
//     uses that snapshot.
//   - A contract with an existing rent for the period is skipped, never
//     duplicated.
//   - Each creation runs in its own transaction, so one bad contract is
//     logged and reported without aborting the rest of the batch.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rentroll/internal/types"
)

// GeneratorStore abstracts the persistence operations the rent-generation
// task needs. Using an interface allows clean testing without a database.
type GeneratorStore interface {
	// ListActiveContractsForPeriod returns every contract with status
	// active, start date <= now, and no end date or end date >= now, each
	// pre-joined with any existing rent for (month, year) and the display
	// fields used in run summaries.
	ListActiveContractsForPeriod(ctx context.Context, month time.Month, year int, now time.Time) ([]types.ContractBilling, error)

	// BeginTx starts a transaction scoped to a single rent creation.
	BeginTx(ctx context.Context) (GeneratorTx, error)
}

// GeneratorTx is the transactional scope for one rent creation.
type GeneratorTx interface {
	CreateRent(ctx context.Context, rent *types.Rent) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GenerationNotifier receives the summary of a completed generation run.
// Implementations deliver it to an operations channel; failures are logged
// and never fail the run.
type GenerationNotifier interface {
	NotifyGeneration(ctx context.Context, summary GenerationSummary) error
}

// CreatedRent describes one rent produced by a generation run, with the
// display fields operators need to identify it.
type CreatedRent struct {
	RentID          string    `json:"rent_id"`
	ContractID      string    `json:"contract_id"`
	PropertyAddress string    `json:"property_address"`
	TenantNames     []string  `json:"tenant_names"`
	AmountDue       float64   `json:"amount_due"`
	DueDate         time.Time `json:"due_date"`
}

// ContractError records a per-contract failure that did not abort the batch.
type ContractError struct {
	ContractID string `json:"contract_id"`
	Reason     string `json:"reason"`
}

// GenerationSummary is the outcome of one generation run.
type GenerationSummary struct {
	RunAt            time.Time       `json:"run_at"`
	PeriodMonth      int             `json:"period_month"`
	PeriodYear       int             `json:"period_year"`
	ContractsScanned int             `json:"contracts_scanned"`
	Created          []CreatedRent   `json:"created"`
	Errors           []ContractError `json:"errors,omitempty"`
}

// RentGenerator creates missing monthly rent records for active contracts.
type RentGenerator struct {
	store    GeneratorStore
	notifier GenerationNotifier
	logger   *slog.Logger
}

// NewRentGenerator creates a RentGenerator. The notifier may be nil, in
// which case run summaries are only logged.
func NewRentGenerator(store GeneratorStore, notifier GenerationNotifier, logger *slog.Logger) *RentGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RentGenerator{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one generation pass for the billing period containing now.
// It returns an error only when the store itself is unavailable; individual
// contract failures are absorbed into the summary's error list.
func (g *RentGenerator) Run(ctx context.Context, now time.Time) error {
	month := now.Month()
	year := now.Year()
	day := now.Day()

	contracts, err := g.store.ListActiveContractsForPeriod(ctx, month, year, now)
	if err != nil {
		return fmt.Errorf("listing active contracts for %04d-%02d: %w", year, month, err)
	}

	summary := GenerationSummary{
		RunAt:       now,
		PeriodMonth: int(month),
		PeriodYear:  year,
	}

	for i := range contracts {
		cb := &contracts[i]
		summary.ContractsScanned++

		if cb.ExistingRent != nil {
			// Already billed for this period: the uniqueness invariant
			// makes re-runs a no-op.
			continue
		}

		dueDay := effectivePaymentDay(cb.Contract.PaymentDay, month, year)
		if day < dueDay {
			// The billing day for this month has not arrived yet.
			continue
		}

		created, err := g.createRent(ctx, cb, month, year, dueDay, now)
		if err != nil {
			g.logger.ErrorContext(ctx, "rent creation failed for contract",
				"contract_id", cb.Contract.ID,
				"error", err,
			)
			summary.Errors = append(summary.Errors, ContractError{
				ContractID: cb.Contract.ID,
				Reason:     err.Error(),
			})
			continue
		}
		summary.Created = append(summary.Created, created)
	}

	g.logger.InfoContext(ctx, "rent generation run complete",
		"period", fmt.Sprintf("%04d-%02d", year, month),
		"contracts_scanned", summary.ContractsScanned,
		"rents_created", len(summary.Created),
		"errors", len(summary.Errors),
	)

	if g.notifier != nil {
		if err := g.notifier.NotifyGeneration(ctx, summary); err != nil {
			g.logger.WarnContext(ctx, "failed to deliver generation summary",
				"error", err,
			)
		}
	}

	return nil
}

// createRent inserts the rent for one contract inside its own transaction.
func (g *RentGenerator) createRent(ctx context.Context, cb *types.ContractBilling, month time.Month, year, dueDay int, now time.Time) (CreatedRent, error) {
	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return CreatedRent{}, fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	rent := &types.Rent{
		ID:          "rent_" + uuid.New().String(),
		ContractID:  cb.Contract.ID,
		PeriodMonth: int(month),
		PeriodYear:  year,
		AmountDue:   cb.Contract.MonthlyTotal(),
		AmountPaid:  0,
		DueDate:     time.Date(year, month, dueDay, 0, 0, 0, 0, now.Location()),
		Status:      types.RentPending,
		Note:        fmt.Sprintf("generated automatically on %s", now.Format(time.RFC3339)),
	}

	if err := tx.CreateRent(ctx, rent); err != nil {
		return CreatedRent{}, fmt.Errorf("creating rent: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return CreatedRent{}, fmt.Errorf("committing rent creation: %w", err)
	}

	g.logger.InfoContext(ctx, "rent created",
		"rent_id", rent.ID,
		"contract_id", rent.ContractID,
		"amount_due", rent.AmountDue,
		"due_date", rent.DueDate.Format("2006-01-02"),
	)

	return CreatedRent{
		RentID:          rent.ID,
		ContractID:      cb.Contract.ID,
		PropertyAddress: cb.PropertyAddress,
		TenantNames:     cb.TenantNames,
		AmountDue:       rent.AmountDue,
		DueDate:         rent.DueDate,
	}, nil
}

// effectivePaymentDay clamps a contract's payment day to the length of the
// billing month, so a day-31 contract still bills in February (on the 28th
// or 29th) instead of skipping the month.
func effectivePaymentDay(paymentDay int, month time.Month, year int) int {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if paymentDay > lastDay {
		return lastDay
	}
	return paymentDay
}
