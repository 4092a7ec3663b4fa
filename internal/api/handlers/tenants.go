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

// TenantStore defines the data access contract for tenant operations.
type TenantStore interface {
	Create(ctx context.Context, t *types.Tenant) error
	GetByID(ctx context.Context, id string) (*types.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]types.Tenant, bool, error)
	Update(ctx context.Context, t *types.Tenant) error
	Delete(ctx context.Context, id string) error
}

// CreateTenantRequest is the request body for POST /v1/tenants.
type CreateTenantRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
}

// UpdateTenantRequest is the request body for PATCH /v1/tenants/{id}.
type UpdateTenantRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// TenantHandler manages tenant CRUD.
type TenantHandler struct {
	store     TenantStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewTenantHandler creates a TenantHandler with the provided dependencies.
func NewTenantHandler(store TenantStore, v *core.Validator, l *slog.Logger) *TenantHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TenantHandler{store: store, validator: v, logger: l}
}

// RegisterRoutes mounts tenant routes on the provided chi.Router.
func (h *TenantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	t := &types.Tenant{
		ID:        "ten_" + uuid.New().String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.Create(r.Context(), t); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "tenant created", "tenant_id", t.ID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: t})
}

// Get handles GET /v1/tenants/{id}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Tenant ID is required", nil))
		return
	}

	t, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: t})
}

// List handles GET /v1/tenants.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	items, hasMore, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data:       items,
		Pagination: &types.PageInfo{HasMore: hasMore},
	})
}

// Update handles PATCH /v1/tenants/{id}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Tenant ID is required", nil))
		return
	}

	var req UpdateTenantRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	t, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.FirstName != nil {
		t.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		t.LastName = *req.LastName
	}
	if req.Email != nil {
		t.Email = *req.Email
	}
	if req.Phone != nil {
		t.Phone = *req.Phone
	}
	t.UpdatedAt = time.Now().UTC()

	if err := h.store.Update(r.Context(), t); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: t})
}

// Delete handles DELETE /v1/tenants/{id}.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Tenant ID is required", nil))
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "tenant deleted", "tenant_id", id)
	w.WriteHeader(http.StatusNoContent)
}
