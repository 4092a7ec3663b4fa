package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentroll/internal/scheduler"
	"rentroll/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noSleep(time.Duration) {}

func sampleSummary() scheduler.GenerationSummary {
	return scheduler.GenerationSummary{
		RunAt:            time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		PeriodMonth:      3,
		PeriodYear:       2026,
		ContractsScanned: 2,
		Created: []scheduler.CreatedRent{
			{
				RentID:          "rent_1",
				ContractID:      "ctr_1",
				PropertyAddress: "12 Rose Street",
				AmountDue:       900,
			},
		},
	}
}

func TestNotifyGenerationDeliversSummary(t *testing.T) {
	var received atomic.Int32
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second, testLogger(), WithSleepFunc(noSleep))
	require.NoError(t, c.NotifyGeneration(context.Background(), sampleSummary()))
	assert.Equal(t, int32(1), received.Load())

	var event struct {
		Event   string                      `json:"event"`
		Summary scheduler.GenerationSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, "rent_generation_completed", event.Event)
	assert.Equal(t, 3, event.Summary.PeriodMonth)
	require.Len(t, event.Summary.Created, 1)
	assert.Equal(t, "rent_1", event.Summary.Created[0].RentID)
}

func TestNotifyGenerationRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second, testLogger(), WithSleepFunc(noSleep))
	require.NoError(t, c.NotifyGeneration(context.Background(), sampleSummary()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyGenerationFailsAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second, testLogger(),
		WithSleepFunc(noSleep),
		WithRetryPolicy(RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: time.Millisecond}),
	)

	err := c.NotifyGeneration(context.Background(), sampleSummary())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamWebhook, appErr.Code)
	assert.Equal(t, int32(3), calls.Load(), "one initial attempt plus two retries")
}

func TestNotifyGenerationPropagatesRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second, testLogger(), WithSleepFunc(noSleep))
	ctx := types.WithRequestID(context.Background(), "req_123")
	require.NoError(t, c.NotifyGeneration(ctx, sampleSummary()))
	assert.Equal(t, "req_123", gotID)
}

func TestNotifyGenerationStopsWhenContextCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewWebhookClient(srv.URL, time.Second, testLogger(), WithSleepFunc(func(time.Duration) {
		cancel()
	}))

	err := c.NotifyGeneration(ctx, sampleSummary())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "cancellation stops the retry loop")
}
