package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentroll/internal/scheduler"
	"rentroll/internal/types"
)

type mockTaskRunner struct {
	statusFn   func() []scheduler.TaskStatus
	forceRunFn func(ctx context.Context, name string) error

	forced []string
}

func (m *mockTaskRunner) TasksStatus() []scheduler.TaskStatus {
	if m.statusFn != nil {
		return m.statusFn()
	}
	next := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	return []scheduler.TaskStatus{
		{Name: scheduler.TaskGenerateMissingRents, NextRun: next},
		{Name: scheduler.TaskRecalculateRentStatuses, NextRun: next.Add(-time.Hour)},
	}
}

func (m *mockTaskRunner) ForceRun(ctx context.Context, name string) error {
	m.forced = append(m.forced, name)
	if m.forceRunFn != nil {
		return m.forceRunFn(ctx, name)
	}
	return nil
}

func newSchedulerRouter(runner *mockTaskRunner) http.Handler {
	return newRouter(NewSchedulerHandler(runner, testLogger()))
}

func TestSchedulerTasksStatus(t *testing.T) {
	router := newSchedulerRouter(&mockTaskRunner{})

	w := doJSON(t, router, http.MethodGet, "/scheduler/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var statuses []scheduler.TaskStatus
	decodeData(t, w, &statuses)
	require.Len(t, statuses, 2)
	assert.Equal(t, scheduler.TaskGenerateMissingRents, statuses[0].Name)
	assert.Nil(t, statuses[0].LastRun)
}

func TestSchedulerForceRun_Success(t *testing.T) {
	runner := &mockTaskRunner{}
	router := newSchedulerRouter(runner)

	w := doJSON(t, router, http.MethodPost, "/scheduler/tasks/"+scheduler.TaskGenerateMissingRents+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{scheduler.TaskGenerateMissingRents}, runner.forced)

	var st scheduler.TaskStatus
	decodeData(t, w, &st)
	assert.Equal(t, scheduler.TaskGenerateMissingRents, st.Name)
}

func TestSchedulerForceRun_UnknownTask(t *testing.T) {
	runner := &mockTaskRunner{
		forceRunFn: func(ctx context.Context, name string) error {
			return types.NewAppError(types.ErrCodeNotFoundTask, "no task registered under name "+name, nil)
		},
	}
	router := newSchedulerRouter(runner)

	w := doJSON(t, router, http.MethodPost, "/scheduler/tasks/not-a-task/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundTask), errorCode(t, w))
}

func TestSchedulerForceRun_AlreadyRunning(t *testing.T) {
	runner := &mockTaskRunner{
		forceRunFn: func(ctx context.Context, name string) error {
			return types.NewAppError(types.ErrCodeConflictTaskRunning, "task "+name+" is already running", nil)
		},
	}
	router := newSchedulerRouter(runner)

	w := doJSON(t, router, http.MethodPost, "/scheduler/tasks/"+scheduler.TaskRecalculateRentStatuses+"/run", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(types.ErrCodeConflictTaskRunning), errorCode(t, w))
}

func TestSchedulerForceRun_TaskFailure(t *testing.T) {
	runner := &mockTaskRunner{
		forceRunFn: func(ctx context.Context, name string) error {
			return types.NewAppError(types.ErrCodeTaskFailed, "generation failed", nil)
		},
	}
	router := newSchedulerRouter(runner)

	w := doJSON(t, router, http.MethodPost, "/scheduler/tasks/"+scheduler.TaskGenerateMissingRents+"/run", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
