package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rentroll/internal/core"
	"rentroll/internal/types"
)

// PaymentRecorder applies payments to rents transactionally. Mirrors the
// concrete db.PaymentStore.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, payment *types.Payment, now time.Time) (*types.Rent, error)
	RemovePayment(ctx context.Context, paymentID string, now time.Time) (*types.Rent, error)
}

// PaymentReader provides read access to individual payments.
type PaymentReader interface {
	GetByID(ctx context.Context, id string) (*types.Payment, error)
	ListByRent(ctx context.Context, rentID string) ([]types.Payment, error)
}

// RecordPaymentRequest is the request body for POST /v1/rents/{id}/payments.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	PaidAt    string  `json:"paid_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Method    string  `json:"method" validate:"required,payment_method"`
	Payer     string  `json:"payer,omitempty" validate:"max=200"`
	Reference string  `json:"reference,omitempty" validate:"max=100"`
}

// PaymentHandler records and removes payments against rents. Every mutation
// goes through the transactional PaymentRecorder so the parent rent's paid
// amount and status can never drift from its payments.
type PaymentHandler struct {
	recorder  PaymentRecorder
	payments  PaymentReader
	validator *core.Validator
	logger    *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler with the provided dependencies.
func NewPaymentHandler(recorder PaymentRecorder, payments PaymentReader, v *core.Validator, l *slog.Logger) *PaymentHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PaymentHandler{recorder: recorder, payments: payments, validator: v, logger: l}
}

// RegisterRoutes mounts payment routes on the provided chi.Router. Payment
// creation and listing hang off the parent rent; deletion addresses the
// payment directly.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rents/{rentID}/payments", func(r chi.Router) {
		r.Post("/", h.Record)
		r.Get("/", h.ListByRent)
	})
	r.Delete("/payments/{id}", h.Remove)
}

// Record handles POST /v1/rents/{rentID}/payments. Returns the updated rent
// so the client sees the new balance and status without a second request.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	rentID := chi.URLParam(r, "rentID")
	if rentID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Rent ID is required", nil))
		return
	}

	var req RecordPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	paidAt := now
	if req.PaidAt != "" {
		paidAt, _ = time.Parse(dateLayout, req.PaidAt)
		if paidAt.After(now) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationDateRange,
				"paid_at cannot be in the future",
				nil,
			))
			return
		}
	}

	payment := &types.Payment{
		ID:        "pay_" + uuid.New().String(),
		RentID:    rentID,
		Amount:    req.Amount,
		PaidAt:    paidAt,
		Method:    types.PaymentMethod(req.Method),
		Payer:     req.Payer,
		Reference: req.Reference,
		CreatedAt: now,
	}

	rent, err := h.recorder.RecordPayment(r.Context(), payment, now)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "payment recorded",
		"payment_id", payment.ID,
		"rent_id", rentID,
		"amount", payment.Amount,
		"rent_status", rent.Status,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rent})
}

// ListByRent handles GET /v1/rents/{rentID}/payments.
func (h *PaymentHandler) ListByRent(w http.ResponseWriter, r *http.Request) {
	rentID := chi.URLParam(r, "rentID")
	if rentID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Rent ID is required", nil))
		return
	}

	payments, err := h.payments.ListByRent(r.Context(), rentID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: payments})
}

// Remove handles DELETE /v1/payments/{id}. The parent rent's balance and
// status are rolled back in the same transaction; the updated rent is
// returned.
func (h *PaymentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Payment ID is required", nil))
		return
	}

	rent, err := h.recorder.RemovePayment(r.Context(), id, time.Now().UTC())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "payment removed",
		"payment_id", id,
		"rent_id", rent.ID,
		"rent_status", rent.Status,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rent})
}
