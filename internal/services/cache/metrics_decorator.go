package cache

import (
	"context"
	"errors"
	"time"
)

type metricsCollector interface {
	ObserveLatency(operation string, duration time.Duration)
	IncrementCounter(metric string, labels ...string)
}

// MetricsDecorator reports latency and hit/miss counts of the wrapped Store
// under a namespace label. Keys are not used as labels.
type MetricsDecorator[T any] struct {
	next      Store[T]
	collector metricsCollector
	namespace string
}

func NewMetricsDecorator[T any](next Store[T], collector metricsCollector, namespace string) *MetricsDecorator[T] {
	return &MetricsDecorator[T]{next: next, collector: collector, namespace: namespace}
}

func (m *MetricsDecorator[T]) Set(
	ctx context.Context,
	key string,
	value T,
	expiration time.Duration,
) error {
	start := time.Now()
	err := m.next.Set(ctx, key, value, expiration)
	m.collector.ObserveLatency("cache_set", time.Since(start))
	if err != nil {
		m.collector.IncrementCounter("cache_set_errors", m.namespace)
	} else {
		m.collector.IncrementCounter("cache_set_success", m.namespace)
	}
	return err
}

//nolint:ireturn
func (m *MetricsDecorator[T]) Get(ctx context.Context, key string) (T, error) {
	start := time.Now()
	value, err := m.next.Get(ctx, key)
	m.collector.ObserveLatency("cache_get", time.Since(start))
	switch {
	case err == nil:
		m.collector.IncrementCounter("cache_get_hits", m.namespace)
	case errors.Is(err, ErrMiss):
		m.collector.IncrementCounter("cache_get_misses", m.namespace)
	default:
		m.collector.IncrementCounter("cache_get_errors", m.namespace)
	}
	return value, err
}
