package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rentroll/internal/core"
	"rentroll/internal/scheduler"
	"rentroll/internal/types"
)

// TaskRunner exposes the scheduler's operational surface. Mirrors the
// concrete scheduler.Scheduler methods used by this handler.
type TaskRunner interface {
	TasksStatus() []scheduler.TaskStatus
	ForceRun(ctx context.Context, name string) error
}

// SchedulerHandler exposes read and force-run access to the billing tasks.
type SchedulerHandler struct {
	runner TaskRunner
	logger *slog.Logger
}

// NewSchedulerHandler creates a SchedulerHandler with the provided
// dependencies.
func NewSchedulerHandler(runner TaskRunner, l *slog.Logger) *SchedulerHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SchedulerHandler{runner: runner, logger: l}
}

// RegisterRoutes mounts scheduler routes on the provided chi.Router.
func (h *SchedulerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/tasks", h.TasksStatus)
		r.Post("/tasks/{name}/run", h.ForceRun)
	})
}

// TasksStatus handles GET /v1/scheduler/tasks.
func (h *SchedulerHandler) TasksStatus(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.runner.TasksStatus()})
}

// ForceRun handles POST /v1/scheduler/tasks/{name}/run. The task executes
// synchronously; the response carries the task's post-run status so the
// caller sees the advanced schedule.
func (h *SchedulerHandler) ForceRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "Task name is required", nil))
		return
	}

	h.logger.InfoContext(r.Context(), "force-run requested", "task", name)

	if err := h.runner.ForceRun(r.Context(), name); err != nil {
		core.Error(w, r, err)
		return
	}

	for _, st := range h.runner.TasksStatus() {
		if st.Name == name {
			core.JSON(w, r, http.StatusOK, core.APIResponse{Data: st})
			return
		}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"task": name, "result": "completed"}})
}
