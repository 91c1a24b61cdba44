package forecast

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
)

const (
	errNoCityName    = "No city name provided."
	errNoCitiesFound = "No cities found for the given name."
)

type cityResolver interface {
	Resolve(ctx context.Context, query string) ([]models.City, error)
}

type forecastAggregator interface {
	Aggregate(ctx context.Context, cities []models.City) ([]models.CityForecast, error)
}

type Handler struct {
	cities    cityResolver
	forecasts forecastAggregator
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewHandler(
	cities cityResolver,
	forecasts forecastAggregator,
	timeout time.Duration,
	logger zerolog.Logger,
) *Handler {
	return &Handler{cities: cities, forecasts: forecasts, timeout: timeout, logger: logger}
}

// GetForecast
// @Summary Get daily forecasts for cities matching a name
// @Description Resolves the name to every matching city and returns the daily forecast of each one
// @Tags forecast
// @Produce json
// @Param city query string true "City name"
// @Success 200 {object} models.ForecastResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /forecast [get]
func (h *Handler) GetForecast(c *gin.Context) {
	query := c.Query("city")
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: errNoCityName})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cities, err := h.cities.Resolve(ctx, query)
	if err != nil {
		h.logger.Error().
			Ctx(ctx).
			Str("query", query).
			Err(err).
			Msg("error getting city coordinates")
	}
	if len(cities) == 0 {
		h.logger.Info().
			Ctx(ctx).
			Str("query", query).
			Msg("no cities found for the given name")
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: errNoCitiesFound})
		return
	}

	forecasts, err := h.forecasts.Aggregate(ctx, cities)
	if err != nil {
		h.logger.Error().
			Ctx(ctx).
			Str("query", query).
			Int("cities", len(cities)).
			Err(err).
			Msg("error getting forecasts, answering with empty forecasts")
		forecasts = nil
	}

	c.JSON(http.StatusOK, buildResponse(cities, forecasts))
}

// buildResponse pairs cities with forecasts by position. A city without a
// matching forecast gets an empty one.
func buildResponse(cities []models.City, forecasts []models.CityForecast) models.ForecastResponse {
	results := make([]models.CityForecastResult, len(cities))
	for i, city := range cities {
		days := []models.ForecastDay{}
		if i < len(forecasts) && forecasts[i].Forecast != nil {
			days = forecasts[i].Forecast
		}
		results[i] = models.CityForecastResult{
			City:     city.Name,
			State:    city.State,
			Forecast: days,
		}
	}
	return models.ForecastResponse{Results: results}
}
