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

// dateLayout is the wire format for date-only fields (start/end dates).
const dateLayout = "2006-01-02"

// ContractStore defines the data access contract for lease operations.
type ContractStore interface {
	Create(ctx context.Context, c *types.Contract, tenantIDs []string) error
	GetByID(ctx context.Context, id string) (*types.Contract, error)
	List(ctx context.Context, status types.ContractStatus, limit, offset int) ([]types.Contract, bool, error)
	Update(ctx context.Context, c *types.Contract) error
	Terminate(ctx context.Context, id string, endDate time.Time) error
}

// ContractTenantStore resolves tenant IDs at contract creation so a contract
// can never reference a tenant that does not exist.
type ContractTenantStore interface {
	GetByIDs(ctx context.Context, ids []string) ([]types.Tenant, error)
}

// CreateContractRequest is the request body for POST /v1/contracts.
type CreateContractRequest struct {
	PropertyID     string   `json:"property_id" validate:"required"`
	TenantIDs      []string `json:"tenant_ids" validate:"required,min=1,max=10,dive,required"`
	BaseRent       float64  `json:"base_rent" validate:"gt=0"`
	MonthlyCharges float64  `json:"monthly_charges" validate:"gte=0"`
	Deposit        float64  `json:"deposit" validate:"gte=0"`
	StartDate      string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string   `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentDay     int      `json:"payment_day" validate:"required,gte=1,lte=31"`
}

// UpdateContractRequest is the request body for PATCH /v1/contracts/{id}.
// Only monetary terms and dates are mutable; parties and status are not.
type UpdateContractRequest struct {
	BaseRent       *float64 `json:"base_rent,omitempty" validate:"omitempty,gt=0"`
	MonthlyCharges *float64 `json:"monthly_charges,omitempty" validate:"omitempty,gte=0"`
	Deposit        *float64 `json:"deposit,omitempty" validate:"omitempty,gte=0"`
	EndDate        *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentDay     *int     `json:"payment_day,omitempty" validate:"omitempty,gte=1,lte=31"`
}

// TerminateContractRequest is the request body for POST /v1/contracts/{id}/terminate.
// EndDate defaults to today when omitted.
type TerminateContractRequest struct {
	EndDate string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ContractHandler manages lease contract CRUD and termination.
type ContractHandler struct {
	store     ContractStore
	tenants   ContractTenantStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewContractHandler creates a ContractHandler with the provided dependencies.
func NewContractHandler(store ContractStore, tenants ContractTenantStore, v *core.Validator, l *slog.Logger) *ContractHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ContractHandler{store: store, tenants: tenants, validator: v, logger: l}
}

// RegisterRoutes mounts contract routes on the provided chi.Router.
func (h *ContractHandler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Post("/terminate", h.Terminate)
		})
	})
}

// Create handles POST /v1/contracts.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	startDate, _ := time.Parse(dateLayout, req.StartDate)
	var endDate *time.Time
	if req.EndDate != "" {
		ed, _ := time.Parse(dateLayout, req.EndDate)
		if !ed.After(startDate) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationDateRange,
				"end_date must be after start_date",
				nil,
			))
			return
		}
		endDate = &ed
	}

	// Resolve tenants up front so the contract never references a missing one.
	tenants, err := h.tenants.GetByIDs(r.Context(), req.TenantIDs)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if len(tenants) != len(req.TenantIDs) {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundTenant,
			"one or more tenant IDs do not exist",
			nil,
		))
		return
	}

	now := time.Now().UTC()
	c := &types.Contract{
		ID:             "ctr_" + uuid.New().String(),
		PropertyID:     req.PropertyID,
		BaseRent:       req.BaseRent,
		MonthlyCharges: req.MonthlyCharges,
		Deposit:        req.Deposit,
		StartDate:      startDate,
		EndDate:        endDate,
		PaymentDay:     req.PaymentDay,
		Status:         types.ContractActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.Create(r.Context(), c, req.TenantIDs); err != nil {
		core.Error(w, r, err)
		return
	}
	c.Tenants = tenants

	h.logger.InfoContext(r.Context(), "contract created",
		"contract_id", c.ID,
		"property_id", c.PropertyID,
		"tenant_count", len(tenants),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: c})
}

// Get handles GET /v1/contracts/{id}. The response is hydrated with the
// contract's property and tenants.
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Contract ID is required", nil))
		return
	}

	c, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}

// List handles GET /v1/contracts. An optional status query parameter narrows
// the result to one lifecycle state.
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := types.ContractStatus(r.URL.Query().Get("status"))

	items, hasMore, err := h.store.List(r.Context(), status, limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data:       items,
		Pagination: &types.PageInfo{HasMore: hasMore},
	})
}

// Update handles PATCH /v1/contracts/{id}.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Contract ID is required", nil))
		return
	}

	var req UpdateContractRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	c, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.BaseRent != nil {
		c.BaseRent = *req.BaseRent
	}
	if req.MonthlyCharges != nil {
		c.MonthlyCharges = *req.MonthlyCharges
	}
	if req.Deposit != nil {
		c.Deposit = *req.Deposit
	}
	if req.EndDate != nil {
		ed, _ := time.Parse(dateLayout, *req.EndDate)
		if !ed.After(c.StartDate) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationDateRange,
				"end_date must be after start_date",
				nil,
			))
			return
		}
		c.EndDate = &ed
	}
	if req.PaymentDay != nil {
		c.PaymentDay = *req.PaymentDay
	}
	c.UpdatedAt = time.Now().UTC()

	if err := h.store.Update(r.Context(), c); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}

// Terminate handles POST /v1/contracts/{id}/terminate. Terminating an
// already-terminated contract is a conflict; the store enforces that.
func (h *ContractHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Contract ID is required", nil))
		return
	}

	var req TerminateContractRequest
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.EndDate != "" {
		endDate, _ = time.Parse(dateLayout, req.EndDate)
	}

	if err := h.store.Terminate(r.Context(), id, endDate); err != nil {
		core.Error(w, r, err)
		return
	}

	c, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "contract terminated",
		"contract_id", id,
		"end_date", endDate.Format(dateLayout),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}
