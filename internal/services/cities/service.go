package cities

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
	"github.com/Nazarious-ucu/city-forecast-api/internal/services/cache"
)

const (
	cacheKeyPrefix = "city_coordinates_"
	resultTypeCity = "city"
)

type placesClient interface {
	Lookup(ctx context.Context, query string) ([]models.Place, error)
}

// Service resolves free-text city names into unique cities.
type Service struct {
	places placesClient
	cache  cache.Store[[]models.City]
	ttl    time.Duration
	logger zerolog.Logger
}

func NewService(
	places placesClient,
	store cache.Store[[]models.City],
	ttl time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{places: places, cache: store, ttl: ttl, logger: logger}
}

func CacheKey(query string) string {
	return cacheKeyPrefix + query
}

// Resolve returns the cities matching query. A cached result is returned as
// is; otherwise the places API is queried and the outcome cached, even when
// no city matched. Lookup failures are returned and never cached.
func (s *Service) Resolve(ctx context.Context, query string) ([]models.City, error) {
	key := CacheKey(query)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		s.logger.Debug().
			Ctx(ctx).
			Str("query", query).
			Str("key", key).
			Msg("cache hit")
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().
			Ctx(ctx).
			Str("query", query).
			Err(err).
			Msg("cache read failed, querying places API")
	}

	places, err := s.places.Lookup(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", query, err)
	}

	cities := BuildCities(places)

	if err := s.cache.Set(ctx, key, cities, s.ttl); err != nil {
		s.logger.Error().
			Ctx(ctx).
			Str("query", query).
			Str("key", key).
			Err(err).
			Msg("cache set failed")
	}

	s.logger.Info().
		Ctx(ctx).
		Str("query", query).
		Int("places", len(places)).
		Int("cities", len(cities)).
		Msg("resolved cities")

	return cities, nil
}

type coordinates struct {
	lat, lon float64
}

// BuildCities keeps city-typed places with both coordinates and collapses
// places sharing a coordinate pair, keeping the first one.
func BuildCities(places []models.Place) []models.City {
	seen := make(map[coordinates]struct{}, len(places))
	cities := make([]models.City, 0, len(places))

	for _, p := range places {
		if p.ResultType != resultTypeCity || !usable(p.Lat) || !usable(p.Long) {
			continue
		}
		key := coordinates{lat: p.Lat.Value, lon: p.Long.Value}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		cities = append(cities, models.City{
			Name:      p.Display,
			Latitude:  p.Lat.Value,
			Longitude: p.Long.Value,
			State:     p.State,
		})
	}

	return cities
}

func usable(c models.Coordinate) bool {
	return c.Valid && !math.IsNaN(c.Value) && !math.IsInf(c.Value, 0)
}
