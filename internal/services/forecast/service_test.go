package forecast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/cache"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/forecast"
)

const forecastTTL = time.Hour

var cdmx = models.City{Name: "Ciudad de México", Latitude: 19.4326, Longitude: -99.1332}

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error) {
	args := m.Called(ctx, lat, lon)
	data, ok := args.Get(0).(models.OneCallResponse)
	if !ok {
		return models.OneCallResponse{}, args.Error(1)
	}
	return data, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]models.ForecastDay, error) {
	args := m.Called(ctx, key)
	value, ok := args.Get(0).([]models.ForecastDay)
	if !ok {
		return nil, args.Error(1)
	}
	return value, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, value []models.ForecastDay, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func daily(dt int64, maxT, minT float64, description string) models.DailyEntry {
	return models.DailyEntry{
		Dt:      dt,
		Temp:    models.DailyTemperature{Max: maxT, Min: minT},
		Weather: []models.WeatherCondition{{Description: description}},
	}
}

func twoDays() models.OneCallResponse {
	return models.OneCallResponse{Daily: []models.DailyEntry{
		daily(1634056800, 25.0, 15.0, "clear sky"),
		daily(1634143200, 22.0, 14.0, "partly cloudy"),
	}}
}

func newMemoryStore() cache.Store[[]models.ForecastDay] {
	return cache.NewMemoryClient[[]models.ForecastDay](cache.NewMemoryBackend())
}

func TestAggregate_NoCache(t *testing.T) {
	expected := []models.ForecastDay{
		{Date: "2021-10-12", TemperatureMax: 25.0, TemperatureMin: 15.0, Weather: "clear sky"},
		{Date: "2021-10-13", TemperatureMax: 22.0, TemperatureMin: 14.0, Weather: "partly cloudy"},
	}

	w := &mockWeather{}
	w.On("Fetch", mock.Anything, 19.4326, -99.1332).Return(twoDays(), nil).Once()

	store := &mockStore{}
	store.On("Get", mock.Anything, "weather_forecast_19.4326_-99.1332").Return(nil, cache.ErrMiss).Once()
	store.On("Set", mock.Anything, "weather_forecast_19.4326_-99.1332", expected, forecastTTL).Return(nil).Once()

	t.Cleanup(func() {
		w.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	svc := forecast.NewService(w, store, forecastTTL, zerolog.Nop())

	result, err := svc.Aggregate(context.Background(), []models.City{cdmx})
	require.NoError(t, err)
	assert.Equal(t, []models.CityForecast{{City: cdmx, Forecast: expected}}, result)
}

func TestAggregate_WithCache(t *testing.T) {
	cached := []models.ForecastDay{
		{Date: "2021-10-12", TemperatureMax: 25.0, TemperatureMin: 15.0, Weather: "clear sky"},
	}

	w := &mockWeather{}
	store := &mockStore{}
	store.On("Get", mock.Anything, "weather_forecast_19.4326_-99.1332").Return(cached, nil).Once()

	t.Cleanup(func() {
		store.AssertExpectations(t)
		w.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	})

	svc := forecast.NewService(w, store, forecastTTL, zerolog.Nop())

	result, err := svc.Aggregate(context.Background(), []models.City{cdmx})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, cached, result[0].Forecast)
}

func TestAggregate_EmptyResponseIsCached(t *testing.T) {
	w := &mockWeather{}
	w.On("Fetch", mock.Anything, 19.4326, -99.1332).Return(models.OneCallResponse{}, nil).Once()

	store := &mockStore{}
	store.On("Get", mock.Anything, mock.Anything).Return(nil, cache.ErrMiss).Once()
	store.On("Set", mock.Anything, "weather_forecast_19.4326_-99.1332", []models.ForecastDay{}, forecastTTL).
		Return(nil).Once()

	t.Cleanup(func() {
		w.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	svc := forecast.NewService(w, store, forecastTTL, zerolog.Nop())

	result, err := svc.Aggregate(context.Background(), []models.City{cdmx})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.NotNil(t, result[0].Forecast)
	assert.Empty(t, result[0].Forecast)
}

func TestAggregate_UpstreamFailureDegradesOneCity(t *testing.T) {
	monterrey := models.City{Name: "Monterrey", Latitude: 25.6866, Longitude: -100.3161}

	w := &mockWeather{}
	w.On("Fetch", mock.Anything, 19.4326, -99.1332).Return(twoDays(), nil).Once()
	w.On("Fetch", mock.Anything, 25.6866, -100.3161).
		Return(models.OneCallResponse{}, errors.New("OpenWeather unavailable")).Once()

	store := newMemoryStore()
	svc := forecast.NewService(w, store, forecastTTL, zerolog.Nop())

	result, err := svc.Aggregate(context.Background(), []models.City{cdmx, monterrey})
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, cdmx, result[0].City)
	assert.Len(t, result[0].Forecast, 2)
	assert.Equal(t, monterrey, result[1].City)
	assert.Empty(t, result[1].Forecast)

	degraded, err := store.Get(context.Background(), "weather_forecast_25.6866_-100.3161")
	require.NoError(t, err)
	assert.Empty(t, degraded)

	w.AssertExpectations(t)
}

func TestAggregate_SecondCallHitsCache(t *testing.T) {
	w := &mockWeather{}
	w.On("Fetch", mock.Anything, 19.4326, -99.1332).Return(twoDays(), nil).Once()

	svc := forecast.NewService(w, newMemoryStore(), forecastTTL, zerolog.Nop())

	first, err := svc.Aggregate(context.Background(), []models.City{cdmx})
	require.NoError(t, err)
	second, err := svc.Aggregate(context.Background(), []models.City{cdmx})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	w.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestAggregate_EmptyInput(t *testing.T) {
	svc := forecast.NewService(&mockWeather{}, newMemoryStore(), forecastTTL, zerolog.Nop())

	result, err := svc.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

// delayedWeather answers after a per-latitude delay and records how many
// calls were in flight at once.
type delayedWeather struct {
	delays map[float64]time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (d *delayedWeather) Fetch(ctx context.Context, lat, _ float64) (models.OneCallResponse, error) {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	select {
	case <-time.After(d.delays[lat]):
	case <-ctx.Done():
		return models.OneCallResponse{}, ctx.Err()
	}

	return models.OneCallResponse{Daily: []models.DailyEntry{
		daily(int64(lat)*86400, lat, lat, "clear sky"),
	}}, nil
}

func TestAggregate_ConcurrentAndOrdered(t *testing.T) {
	input := []models.City{
		{Name: "slow", Latitude: 1, Longitude: 1},
		{Name: "fast", Latitude: 2, Longitude: 2},
		{Name: "medium", Latitude: 3, Longitude: 3},
	}
	w := &delayedWeather{delays: map[float64]time.Duration{
		1: 150 * time.Millisecond,
		2: 10 * time.Millisecond,
		3: 80 * time.Millisecond,
	}}

	svc := forecast.NewService(w, newMemoryStore(), forecastTTL, zerolog.Nop())

	start := time.Now()
	result, err := svc.Aggregate(context.Background(), input)
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Len(t, result, len(input))
	for i, city := range input {
		assert.Equal(t, city, result[i].City)
		require.Len(t, result[i].Forecast, 1)
		assert.Equal(t, city.Latitude, result[i].Forecast[0].TemperatureMax)
	}

	assert.Equal(t, 3, w.maxInFlight)
	assert.Less(t, elapsed, 240*time.Millisecond)
}

func TestAggregate_CancelledContext(t *testing.T) {
	input := []models.City{{Name: "stuck", Latitude: 5, Longitude: 5}}
	w := &delayedWeather{delays: map[float64]time.Duration{5: time.Minute}}

	store := newMemoryStore()
	svc := forecast.NewService(w, store, forecastTTL, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := svc.Aggregate(ctx, input)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), time.Second)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Get(context.Background(), forecast.CacheKey(5, 5))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestBuildDailyForecast(t *testing.T) {
	raw := models.OneCallResponse{Daily: []models.DailyEntry{
		daily(1727839969, 25.0, 15.0, "clear sky"),
		daily(1727926369, 22.0, 14.0, "partly cloudy"),
	}}
	expected := []models.ForecastDay{
		{Date: "2024-10-02", TemperatureMax: 25.0, TemperatureMin: 15.0, Weather: "clear sky"},
		{Date: "2024-10-03", TemperatureMax: 22.0, TemperatureMin: 14.0, Weather: "partly cloudy"},
	}

	assert.Equal(t, expected, forecast.BuildDailyForecast(raw))
}

func TestBuildDailyForecast_MissingParts(t *testing.T) {
	assert.Equal(t, []models.ForecastDay{}, forecast.BuildDailyForecast(models.OneCallResponse{}))

	noWeather := models.DailyEntry{Dt: 1727839969}
	days := forecast.BuildDailyForecast(models.OneCallResponse{Daily: []models.DailyEntry{noWeather}})
	require.Len(t, days, 1)
	assert.Equal(t, "2024-10-02", days[0].Date)
	assert.Equal(t, "", days[0].Weather)
}

func TestUnixToDate(t *testing.T) {
	assert.Equal(t, "2024-10-02", forecast.UnixToDate(1727839969))
	assert.Equal(t, "1970-01-01", forecast.UnixToDate(0))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "weather_forecast_19.4326_-99.1332", forecast.CacheKey(19.4326, -99.1332))
	assert.Equal(t, "weather_forecast_25_-100", forecast.CacheKey(25, -100))
}
