package ai

import (
	"context"
	"errors"
	"time"

	"smart-email/internal/metrics"
	"smart-email/internal/model"

	"github.com/sony/gobreaker"
)

type BreakerSettings struct {
	Name string
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests caps probes while half-open.
	MaxRequests uint32
}

// BreakerClient fails fast with gobreaker.ErrOpenState while the backend is
// considered down. Caller cancellation does not count as a backend failure.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerClient(next Client, settings BreakerSettings) *BreakerClient {
	if settings.Name == "" {
		settings.Name = "classifier"
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(name, int(to))
		},
	})
	metrics.RecordBreakerState(settings.Name, int(gobreaker.StateClosed))
	return &BreakerClient{next: next, cb: cb}
}

func (b *BreakerClient) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Classify(ctx, req)
	})
	if err != nil {
		return model.ClassificationResponse{}, err
	}
	return out.(model.ClassificationResponse), nil
}

func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}
