package handlers

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"rentroll/internal/core"
	"rentroll/internal/db"
	"rentroll/internal/types"
)

// RentStore defines the data access contract for rent operations.
type RentStore interface {
	Create(ctx context.Context, rent *types.Rent) error
	GetByID(ctx context.Context, id string) (*types.Rent, error)
	List(ctx context.Context, filter db.RentFilter, limit, offset int) ([]types.Rent, bool, error)
	UpdateNote(ctx context.Context, id string, note string) error
	RentRoll(ctx context.Context, month, year int) ([]db.RentRollRow, error)
}

// CreateRentRequest is the request body for POST /v1/rents. Manual creation
// covers periods the generation task cannot reach, such as back-billing a
// contract that predates the system.
type CreateRentRequest struct {
	ContractID  string  `json:"contract_id" validate:"required"`
	PeriodMonth int     `json:"period_month" validate:"required,gte=1,lte=12"`
	PeriodYear  int     `json:"period_year" validate:"required,gte=2000,lte=2100"`
	AmountDue   float64 `json:"amount_due" validate:"gt=0"`
	DueDate     string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	Note        string  `json:"note,omitempty" validate:"max=500"`
}

// UpdateRentRequest is the request body for PATCH /v1/rents/{id}. Only the
// free-form note is mutable; amounts and status always come from payments.
type UpdateRentRequest struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

// RentHandler manages rent records and the rent-roll export.
type RentHandler struct {
	store     RentStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewRentHandler creates a RentHandler with the provided dependencies.
func NewRentHandler(store RentStore, v *core.Validator, l *slog.Logger) *RentHandler {
	if l == nil {
		l = slog.Default()
	}
	return &RentHandler{store: store, validator: v, logger: l}
}

// RegisterRoutes mounts rent routes on the provided chi.Router.
func (h *RentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rents", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/rent-roll", h.ExportRentRoll)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.UpdateNote)
	})
}

// Create handles POST /v1/rents. Creating a rent for a (contract, period)
// that already has one is a conflict; the store enforces that.
func (h *RentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	dueDate, _ := time.Parse(dateLayout, req.DueDate)
	now := time.Now().UTC()
	rent := &types.Rent{
		ID:          "rent_" + uuid.New().String(),
		ContractID:  req.ContractID,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
		AmountDue:   req.AmountDue,
		DueDate:     dueDate,
		Status:      types.ComputeRentStatus(req.AmountDue, 0, dueDate, now),
		Note:        req.Note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.Create(r.Context(), rent); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "rent created manually",
		"rent_id", rent.ID,
		"contract_id", rent.ContractID,
		"period", strconv.Itoa(rent.PeriodMonth)+"/"+strconv.Itoa(rent.PeriodYear),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rent})
}

// Get handles GET /v1/rents/{id}. The response includes the rent's payments.
func (h *RentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Rent ID is required", nil))
		return
	}

	rent, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rent})
}

// UpdateNote handles PATCH /v1/rents/{id}.
func (h *RentHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Rent ID is required", nil))
		return
	}

	var req UpdateRentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Note == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "note is required", nil))
		return
	}

	if err := h.store.UpdateNote(r.Context(), id, *req.Note); err != nil {
		core.Error(w, r, err)
		return
	}

	rent, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rent})
}

// List handles GET /v1/rents. Supported filters: contract_id, status,
// period_month, period_year.
func (h *RentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filter := db.RentFilter{
		ContractID:  r.URL.Query().Get("contract_id"),
		Status:      types.RentStatus(r.URL.Query().Get("status")),
		PeriodMonth: queryInt(r, "period_month"),
		PeriodYear:  queryInt(r, "period_year"),
	}

	items, hasMore, err := h.store.List(r.Context(), filter, limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data:       items,
		Pagination: &types.PageInfo{HasMore: hasMore},
	})
}

// ExportRentRoll handles GET /v1/rents/rent-roll?month=&year=. It streams the
// period's rent roll as CSV, gzip-compressed when the client accepts it.
func (h *RentHandler) ExportRentRoll(w http.ResponseWriter, r *http.Request) {
	month := queryInt(r, "month")
	year := queryInt(r, "year")
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationPeriod,
			"month must be 1-12 and year must be a four-digit year",
			nil,
		))
		return
	}

	rows, err := h.store.RentRoll(r.Context(), month, year)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	filename := "rent-roll-" + strconv.Itoa(year) + "-" + twoDigits(month) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	dest := csvDestination(w, r)
	defer dest.close()

	cw := csv.NewWriter(dest.writer)
	record := []string{"rent_id", "contract_id", "property_address", "tenants", "period", "amount_due", "amount_paid", "due_date", "status"}
	if err := cw.Write(record); err != nil {
		h.logger.ErrorContext(r.Context(), "rent roll export aborted", "error", err)
		return
	}
	for _, row := range rows {
		record = []string{
			row.RentID,
			row.ContractID,
			row.PropertyAddress,
			row.TenantNames,
			twoDigits(row.PeriodMonth) + "/" + strconv.Itoa(row.PeriodYear),
			strconv.FormatFloat(row.AmountDue, 'f', 2, 64),
			strconv.FormatFloat(row.AmountPaid, 'f', 2, 64),
			row.DueDate.Format(dateLayout),
			string(row.Status),
		}
		if err := cw.Write(record); err != nil {
			h.logger.ErrorContext(r.Context(), "rent roll export aborted", "error", err)
			return
		}
	}
	cw.Flush()
}

// exportDest wraps the response writer, inserting a gzip layer when the
// client negotiated it.
type exportDest struct {
	writer io.Writer
	gz     *gzip.Writer
}

func (d exportDest) close() {
	if d.gz != nil {
		d.gz.Close() //nolint:errcheck
	}
}

func csvDestination(w http.ResponseWriter, r *http.Request) exportDest {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return exportDest{writer: w}
	}
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	return exportDest{writer: gz, gz: gz}
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
