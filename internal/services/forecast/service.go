package forecast

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/cache"
)

const (
	cacheKeyPrefix = "weather_forecast_"
	dateLayout     = "2006-01-02"
)

type weatherClient interface {
	Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error)
}

// Service fetches daily forecasts for many cities at once.
type Service struct {
	weather weatherClient
	cache   cache.Store[[]models.ForecastDay]
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewService(
	weather weatherClient,
	store cache.Store[[]models.ForecastDay],
	ttl time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{weather: weather, cache: store, ttl: ttl, logger: logger}
}

func CacheKey(lat, lon float64) string {
	return cacheKeyPrefix + formatDegrees(lat) + "_" + formatDegrees(lon)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Aggregate returns one CityForecast per city, in input order. Cities are
// processed concurrently. An upstream failure for a city yields an empty
// forecast for that city only. The only error is the context's: on
// cancellation Aggregate returns at once and in-flight lookups are abandoned.
func (s *Service) Aggregate(ctx context.Context, cities []models.City) ([]models.CityForecast, error) {
	results := make([]models.CityForecast, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	for i, city := range cities {
		i, city := i, city
		g.Go(func() error {
			days, err := s.dailyForecast(gctx, city)
			if err != nil {
				return err
			}
			results[i] = models.CityForecast{City: city, Forecast: days}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return results, nil
	}
}

func (s *Service) dailyForecast(ctx context.Context, city models.City) ([]models.ForecastDay, error) {
	key := CacheKey(city.Latitude, city.Longitude)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn().
			Ctx(ctx).
			Str("key", key).
			Err(err).
			Msg("cache read failed, fetching forecast")
	}

	raw, err := s.weather.Fetch(ctx, city.Latitude, city.Longitude)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error().
			Ctx(ctx).
			Str("city", city.Name).
			Float64("latitude", city.Latitude).
			Float64("longitude", city.Longitude).
			Err(err).
			Msg("forecast fetch failed, using empty forecast")
		raw = models.OneCallResponse{}
	}

	days := BuildDailyForecast(raw)

	if err := s.cache.Set(ctx, key, days, s.ttl); err != nil {
		s.logger.Error().
			Ctx(ctx).
			Str("key", key).
			Err(err).
			Msg("cache set failed")
	}

	return days, nil
}

// BuildDailyForecast normalizes the daily entries of a One Call payload,
// keeping upstream order.
func BuildDailyForecast(raw models.OneCallResponse) []models.ForecastDay {
	days := make([]models.ForecastDay, 0, len(raw.Daily))
	for _, d := range raw.Daily {
		var description string
		if len(d.Weather) > 0 {
			description = d.Weather[0].Description
		}
		days = append(days, models.ForecastDay{
			Date:           UnixToDate(d.Dt),
			TemperatureMax: d.Temp.Max,
			TemperatureMin: d.Temp.Min,
			Weather:        description,
		})
	}
	return days
}

// UnixToDate formats Unix seconds as a UTC calendar date.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dateLayout)
}
