package weather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/weather"
)

var breakerCfg = weather.BreakerConfig{
	TimeInterval: 30 * time.Second,
	TimeTimeOut:  15 * time.Second,
	RepeatNumber: 5,
}

type mockWrapped struct {
	mock.Mock
}

func (m *mockWrapped) Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error) {
	args := m.Called(ctx, lat, lon)
	data, ok := args.Get(0).(models.OneCallResponse)
	if !ok {
		return models.OneCallResponse{}, args.Error(1)
	}
	return data, args.Error(1)
}

const (
	breakerName = "TestAPI"
	lat         = 19.4326
	lon         = -99.1332
)

func TestBreakerClient_Success(t *testing.T) {
	wrapped := new(mockWrapped)
	expected := models.OneCallResponse{Daily: []models.DailyEntry{{Dt: 1727839969}}}

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(expected, nil).
		Once()

	bc := weather.NewBreakerClient(breakerName, breakerCfg, wrapped)

	data, err := bc.Fetch(context.Background(), lat, lon)
	assert.NoError(t, err)
	assert.Equal(t, expected, data)

	wrapped.AssertExpectations(t)
}

func TestBreakerClient_UnderlyingErrorBeforeTrip(t *testing.T) {
	wrapped := new(mockWrapped)
	underlyingErr := errors.New("service down")

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(models.OneCallResponse{}, underlyingErr).
		Once()

	bc := weather.NewBreakerClient(breakerName, breakerCfg, wrapped)

	data, err := bc.Fetch(context.Background(), lat, lon)
	assert.ErrorIs(t, err, underlyingErr)
	assert.Empty(t, data.Daily)
	assert.Contains(t, err.Error(), breakerName+" unavailable")

	wrapped.AssertExpectations(t)
}

func TestBreakerClient_TripCircuitAfterFiveFailures(t *testing.T) {
	wrapped := new(mockWrapped)
	underlyingErr := errors.New("timeout")

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(models.OneCallResponse{}, underlyingErr).
		Times(5)

	var states []int
	cfg := breakerCfg
	cfg.OnStateChange = func(name string, state int) {
		assert.Equal(t, breakerName, name)
		states = append(states, state)
	}

	bc := weather.NewBreakerClient(breakerName, cfg, wrapped)

	for i := 1; i <= 5; i++ {
		_, err := bc.Fetch(context.Background(), lat, lon)
		assert.ErrorIs(t, err, underlyingErr, "call #%d should error before trip", i)
	}

	_, err := bc.Fetch(context.Background(), lat, lon)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, states)

	wrapped.AssertExpectations(t)
	wrapped.AssertNumberOfCalls(t, "Fetch", 5)
}

func TestBreakerClient_CancellationDoesNotTrip(t *testing.T) {
	wrapped := new(mockWrapped)

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(models.OneCallResponse{}, context.Canceled).
		Times(6)

	bc := weather.NewBreakerClient(breakerName, breakerCfg, wrapped)

	for i := 0; i < 6; i++ {
		_, err := bc.Fetch(context.Background(), lat, lon)
		assert.ErrorIs(t, err, context.Canceled)
	}

	wrapped.AssertNumberOfCalls(t, "Fetch", 6)
}

func TestBreakerClient_CallerDeadlineDoesNotTrip(t *testing.T) {
	wrapped := new(mockWrapped)
	expected := models.OneCallResponse{Daily: []models.DailyEntry{{Dt: 1727839969}}}

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(models.OneCallResponse{}, context.DeadlineExceeded).
		Times(5)
	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(expected, nil).
		Once()

	var states []int
	cfg := breakerCfg
	cfg.OnStateChange = func(_ string, state int) {
		states = append(states, state)
	}

	bc := weather.NewBreakerClient(breakerName, cfg, wrapped)

	for i := 1; i <= 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, err := bc.Fetch(ctx, lat, lon)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded, "call #%d", i)
	}

	data, err := bc.Fetch(context.Background(), lat, lon)
	assert.NoError(t, err)
	assert.Equal(t, expected, data)
	assert.Empty(t, states)

	wrapped.AssertExpectations(t)
}

func TestBreakerClient_ClientTimeoutStillTrips(t *testing.T) {
	wrapped := new(mockWrapped)
	clientTimeout := errors.New("Client.Timeout exceeded while awaiting headers")

	wrapped.
		On("Fetch", mock.Anything, lat, lon).
		Return(models.OneCallResponse{}, clientTimeout).
		Times(5)

	bc := weather.NewBreakerClient(breakerName, breakerCfg, wrapped)

	for i := 0; i < 5; i++ {
		_, err := bc.Fetch(context.Background(), lat, lon)
		assert.ErrorIs(t, err, clientTimeout)
	}

	_, err := bc.Fetch(context.Background(), lat, lon)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	wrapped.AssertNumberOfCalls(t, "Fetch", 5)
}
