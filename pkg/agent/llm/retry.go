package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines exponential backoff behavior for retryable errors.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfig mirrors the Gemini retry tuning used upstream:
// five attempts with exponential backoff capped at a minute.
//
//nolint:gochecknoglobals // package default, copied by value
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:   5,
	InitialDelay:  1 * time.Second,
	MaxDelay:      60 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// RetryableClient wraps a Client with classified-error retry logic.
type RetryableClient struct {
	client Client
	config RetryConfig
}

// NewRetryableClient wraps client with the given retry configuration.
func NewRetryableClient(client Client, config RetryConfig) *RetryableClient {
	if config.MaxAttempts <= 0 {
		config = DefaultRetryConfig
	}
	return &RetryableClient{client: client, config: config}
}

// Complete implements Client, retrying rate-limit, transient, and
// empty-response failures with exponential backoff.
func (r *RetryableClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return CompletionResponse{}, ctx.Err()
			case <-time.After(r.delay(attempt)):
			}
		}

		resp, err := r.client.Complete(ctx, in)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var classified *Error
		if errors.As(err, &classified) && !classified.Retryable() {
			return CompletionResponse{}, err
		}
	}

	return CompletionResponse{}, lastErr
}

// ModelName implements Client.
func (r *RetryableClient) ModelName() string {
	return r.client.ModelName()
}

func (r *RetryableClient) delay(attempt int) time.Duration {
	d := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		d *= 0.5 + rand.Float64()*0.5 //nolint:gosec // jitter does not need crypto randomness
	}
	return time.Duration(d)
}
