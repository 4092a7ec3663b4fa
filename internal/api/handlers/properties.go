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

// PropertyStore defines the data access contract for property operations.
// Mirrors the concrete db.PropertyRepository methods used by this handler.
type PropertyStore interface {
	Create(ctx context.Context, p *types.Property) error
	GetByID(ctx context.Context, id string) (*types.Property, error)
	List(ctx context.Context, limit, offset int) ([]types.Property, bool, error)
	Update(ctx context.Context, p *types.Property) error
	Delete(ctx context.Context, id string) error
}

// CreatePropertyRequest is the request body for POST /v1/properties.
type CreatePropertyRequest struct {
	Address    string  `json:"address" validate:"required,max=300"`
	City       string  `json:"city" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Kind       string  `json:"kind" validate:"required,oneof=apartment house garage commercial"`
	SurfaceM2  float64 `json:"surface_m2" validate:"gte=0"`
	Rooms      int     `json:"rooms" validate:"gte=0"`
	Notes      string  `json:"notes,omitempty" validate:"max=2000"`
}

// UpdatePropertyRequest is the request body for PATCH /v1/properties/{id}.
// Pointer fields allow partial updates.
type UpdatePropertyRequest struct {
	Address    *string  `json:"address,omitempty" validate:"omitempty,max=300"`
	City       *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode *string  `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Kind       *string  `json:"kind,omitempty" validate:"omitempty,oneof=apartment house garage commercial"`
	SurfaceM2  *float64 `json:"surface_m2,omitempty" validate:"omitempty,gte=0"`
	Rooms      *int     `json:"rooms,omitempty" validate:"omitempty,gte=0"`
	Notes      *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// PropertyHandler manages property CRUD.
type PropertyHandler struct {
	store     PropertyStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewPropertyHandler creates a PropertyHandler with the provided dependencies.
func NewPropertyHandler(store PropertyStore, v *core.Validator, l *slog.Logger) *PropertyHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PropertyHandler{store: store, validator: v, logger: l}
}

// RegisterRoutes mounts property routes on the provided chi.Router.
func (h *PropertyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/properties", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/properties.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	p := &types.Property{
		ID:         "prop_" + uuid.New().String(),
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Kind:       types.PropertyKind(req.Kind),
		SurfaceM2:  req.SurfaceM2,
		Rooms:      req.Rooms,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.Create(r.Context(), p); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "property created", "property_id", p.ID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: p})
}

// Get handles GET /v1/properties/{id}.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Property ID is required", nil))
		return
	}

	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}

// List handles GET /v1/properties.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
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

// Update handles PATCH /v1/properties/{id}.
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Property ID is required", nil))
		return
	}

	var req UpdatePropertyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.PostalCode != nil {
		p.PostalCode = *req.PostalCode
	}
	if req.Kind != nil {
		p.Kind = types.PropertyKind(*req.Kind)
	}
	if req.SurfaceM2 != nil {
		p.SurfaceM2 = *req.SurfaceM2
	}
	if req.Rooms != nil {
		p.Rooms = *req.Rooms
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.store.Update(r.Context(), p); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}

// Delete handles DELETE /v1/properties/{id}. Properties with an active
// contract are refused with a conflict by the store.
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Property ID is required", nil))
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "property deleted", "property_id", id)
	w.WriteHeader(http.StatusNoContent)
}
