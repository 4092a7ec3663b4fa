// Package notify delivers scheduler run summaries to an operations webhook.
// Delivery is best-effort: the webhook endpoint is outside our control, so
// calls go through a circuit breaker and a short retry loop, and a delivery
// failure is reported to the caller but never treated as a task failure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"rentroll/internal/scheduler"
	"rentroll/internal/types"
)

// RetryPolicy configures the retry behavior for webhook deliveries.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the delivery defaults: two retries with a short
// jittered backoff. Summaries are advisory, so we give up quickly.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// WebhookClient posts JSON payloads to a fixed operations endpoint. A
// circuit breaker stops hammering the endpoint when it is down; while the
// breaker is open, deliveries fail fast.
type WebhookClient struct {
	url         string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[int]
	retryPolicy RetryPolicy
	logger      *slog.Logger
	sleepFn     func(time.Duration) // for testability; defaults to time.Sleep
}

// Option is a functional option for configuring a WebhookClient.
type Option func(*WebhookClient)

// WithSleepFunc overrides the sleep function used between retries. Intended
// for tests that must not wait in real time.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *WebhookClient) {
		c.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *WebhookClient) {
		c.retryPolicy = p
	}
}

// NewWebhookClient creates a WebhookClient targeting url. The timeout bounds
// each individual HTTP attempt.
func NewWebhookClient(url string, timeout time.Duration, logger *slog.Logger, opts ...Option) *WebhookClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "ops-webhook",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &WebhookClient{
		url:         url,
		client:      &http.Client{Timeout: timeout},
		breaker:     cb,
		retryPolicy: DefaultRetryPolicy(),
		logger:      logger,
		sleepFn:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generationEvent is the wire envelope for a rent-generation summary.
type generationEvent struct {
	Event   string                      `json:"event"`
	SentAt  time.Time                   `json:"sent_at"`
	Summary scheduler.GenerationSummary `json:"summary"`
}

// NotifyGeneration delivers a rent-generation summary to the webhook.
func (c *WebhookClient) NotifyGeneration(ctx context.Context, summary scheduler.GenerationSummary) error {
	return c.post(ctx, generationEvent{
		Event:   "rent_generation_completed",
		SentAt:  time.Now().UTC(),
		Summary: summary,
	})
}

// post marshals payload and delivers it with retries on 429/5xx and network
// errors. An open circuit breaker fails immediately without retrying.
func (c *WebhookClient) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode webhook payload", err)
	}

	var lastStatus int
	var lastErr error

	maxAttempts := 1 + c.retryPolicy.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := c.breaker.Execute(func() (int, error) {
			return c.attempt(ctx, body)
		})

		if err == nil {
			return nil
		}
		lastStatus = status
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt))
		}
	}

	c.logger.WarnContext(ctx, "webhook delivery failed",
		"url", c.url,
		"status", lastStatus,
		"error", lastErr,
	)
	return types.NewAppError(types.ErrCodeUpstreamWebhook, "webhook delivery failed", lastErr)
}

// attempt performs one HTTP POST. Non-2xx responses are errors so the
// circuit breaker counts them.
func (c *WebhookClient) attempt(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID := types.GetRequestID(ctx); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("webhook returned %d", resp.StatusCode)
}

// computeBackoff returns an exponential backoff with full jitter clamped to
// [MinWait, MaxWait].
func (c *WebhookClient) computeBackoff(attempt int) time.Duration {
	base := float64(c.retryPolicy.MinWait) * math.Pow(2, float64(attempt))
	maxWait := float64(c.retryPolicy.MaxWait)
	if base > maxWait {
		base = maxWait
	}
	minWait := float64(c.retryPolicy.MinWait)
	if base <= minWait {
		return c.retryPolicy.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}
