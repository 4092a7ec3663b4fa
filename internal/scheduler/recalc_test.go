package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentroll/internal/types"
)

type recalcStore struct {
	rows     []types.RentStatusRow
	beginErr error
	listErr  error
	updErr   map[string]error

	updated   map[string]types.RentStatus
	commits   int
	rollbacks int
}

func (s *recalcStore) BeginTx(_ context.Context) (RecalculatorTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	if s.updated == nil {
		s.updated = make(map[string]types.RentStatus)
	}
	return &recalcTx{store: s}, nil
}

type recalcTx struct {
	store     *recalcStore
	committed bool
}

func (t *recalcTx) ListRentStatusRows(_ context.Context) ([]types.RentStatusRow, error) {
	if t.store.listErr != nil {
		return nil, t.store.listErr
	}
	return t.store.rows, nil
}

func (t *recalcTx) UpdateRentStatus(_ context.Context, rentID string, status types.RentStatus) error {
	if err := t.store.updErr[rentID]; err != nil {
		return err
	}
	t.store.updated[rentID] = status
	return nil
}

func (t *recalcTx) Commit(_ context.Context) error {
	t.committed = true
	t.store.commits++
	return nil
}

func (t *recalcTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.store.rollbacks++
	}
	return nil
}

func statusRow(id string, due, paid float64, dueDate time.Time, status types.RentStatus) types.RentStatusRow {
	return types.RentStatusRow{
		ID:         id,
		ContractID: "ctr_" + id,
		AmountDue:  due,
		AmountPaid: paid,
		DueDate:    dueDate,
		Status:     status,
	}
}

func TestStatusRecalculatorUpdatesOnlyChangedRows(t *testing.T) {
	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	past := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)

	store := &recalcStore{
		rows: []types.RentStatusRow{
			// Unpaid and overdue: pending -> late.
			statusRow("1", 900, 0, past, types.RentPending),
			// Partially paid and overdue: pending -> partial.
			statusRow("2", 900, 400, past, types.RentPending),
			// Fully paid: partial -> paid.
			statusRow("3", 900, 900, past, types.RentPartial),
			// Not yet due and unpaid: stays pending, no write.
			statusRow("4", 900, 0, future, types.RentPending),
			// Already late and still unpaid: no write.
			statusRow("5", 900, 0, past, types.RentLate),
		},
	}
	r := NewStatusRecalculator(store, testLogger())

	require.NoError(t, r.Run(context.Background(), now))
	assert.Equal(t, map[string]types.RentStatus{
		"1": types.RentLate,
		"2": types.RentPartial,
		"3": types.RentPaid,
	}, store.updated)
	assert.Equal(t, 1, store.commits)
}

func TestStatusRecalculatorIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	past := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	store := &recalcStore{
		rows: []types.RentStatusRow{statusRow("1", 900, 0, past, types.RentPending)},
	}
	r := NewStatusRecalculator(store, testLogger())

	require.NoError(t, r.Run(context.Background(), now))
	require.Equal(t, types.RentLate, store.updated["1"])

	// Second pass with the statuses already settled: no writes.
	store.rows[0].Status = types.RentLate
	store.updated = make(map[string]types.RentStatus)
	require.NoError(t, r.Run(context.Background(), now))
	assert.Empty(t, store.updated)
}

func TestStatusRecalculatorAbortsOnUpdateFailure(t *testing.T) {
	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	past := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	store := &recalcStore{
		rows: []types.RentStatusRow{
			statusRow("1", 900, 0, past, types.RentPending),
			statusRow("2", 900, 0, past, types.RentPending),
		},
		updErr: map[string]error{"2": errors.New("row locked")},
	}
	r := NewStatusRecalculator(store, testLogger())

	err := r.Run(context.Background(), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rent 2")
	assert.Zero(t, store.commits, "a failed pass must not commit partial updates")
	assert.Equal(t, 1, store.rollbacks)
}

func TestStatusRecalculatorReturnsListError(t *testing.T) {
	store := &recalcStore{listErr: errors.New("connection refused")}
	r := NewStatusRecalculator(store, testLogger())

	err := r.Run(context.Background(), time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, store.rollbacks)
}

func TestComputeRentStatusFormula(t *testing.T) {
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	tests := []struct {
		name string
		due  float64
		paid float64
		date time.Time
		want types.RentStatus
	}{
		{"fully paid before due date", 900, 900, future, types.RentPaid},
		{"overpaid", 900, 950, past, types.RentPaid},
		{"unpaid and overdue", 900, 0, past, types.RentLate},
		{"partially paid and overdue", 900, 400, past, types.RentPartial},
		{"partially paid before due date", 900, 400, future, types.RentPartial},
		{"unpaid before due date", 900, 0, future, types.RentPending},
		{"unpaid exactly on due date", 900, 0, now, types.RentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.ComputeRentStatus(tt.due, tt.paid, tt.date, now))
		})
	}
}
