package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
)

type client interface {
	Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error)
}

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32

	// OnStateChange, when set, is told about every state transition.
	OnStateChange func(name string, state int)
}

// BreakerClient stops calling the wrapped client after RepeatNumber
// consecutive failures until TimeTimeOut has passed. It never retries.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, _, to gobreaker.State) {
			cfg.OnStateChange(name, int(to))
		}
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error) {
	// A caller giving up says nothing about upstream health, so a failure
	// after ctx ended is hidden from the breaker and returned as is.
	var callerErr error
	result, err := b.cb.Execute(func() (interface{}, error) {
		res, err := b.wrapped.Fetch(ctx, lat, lon)
		if err != nil && ctx.Err() != nil {
			callerErr = err
			return nil, nil
		}
		return res, err
	})
	if callerErr != nil {
		return models.OneCallResponse{}, callerErr
	}
	if err != nil {
		return models.OneCallResponse{},
			fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	res, ok := result.(models.OneCallResponse)
	if !ok {
		return models.OneCallResponse{},
			fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}
