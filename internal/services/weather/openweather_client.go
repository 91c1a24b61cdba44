package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
)

// ErrUnexpectedStatus is returned when the One Call API answers with a
// non-200 status.
var ErrUnexpectedStatus = errors.New("OpenWeatherMap unexpected status")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOpenWeatherMap fetches daily forecasts from the One Call API.
type ClientOpenWeatherMap struct {
	APIKey string
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

// NewClientOpenWeatherMap constructs a new OpenWeatherMap client.
func NewClientOpenWeatherMap(apiKey, apiURL string,
	httpClient HTTPClient, logger zerolog.Logger,
) *ClientOpenWeatherMap {
	return &ClientOpenWeatherMap{APIKey: apiKey, apiURL: apiURL, client: httpClient, logger: logger}
}

func (s *ClientOpenWeatherMap) buildURL(lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("exclude", "hourly,minutely")
	q.Set("units", "metric")
	q.Set("appid", s.APIKey)
	return s.apiURL + "?" + q.Encode()
}

// Fetch retrieves the raw forecast payload for a coordinate pair.
func (s *ClientOpenWeatherMap) Fetch(ctx context.Context, lat, lon float64) (models.OneCallResponse, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildURL(lat, lon), nil)
	if err != nil {
		return models.OneCallResponse{}, fmt.Errorf("build forecast request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().
			Ctx(ctx).
			Err(err).
			Float64("latitude", lat).
			Float64("longitude", lon).
			Msg("error sending HTTP request to OpenWeatherMap")
		return models.OneCallResponse{}, fmt.Errorf("forecast request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Error().
				Err(cerr).
				Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn().
			Ctx(ctx).
			Float64("latitude", lat).
			Float64("longitude", lon).
			Int("status", resp.StatusCode).
			Msg("OpenWeatherMap API returned non-200 status")
		return models.OneCallResponse{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	var raw models.OneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		s.logger.Error().
			Ctx(ctx).
			Err(err).
			Float64("latitude", lat).
			Float64("longitude", lon).
			Msg("failed to decode OpenWeatherMap response")
		return models.OneCallResponse{}, fmt.Errorf("decode forecast response: %w", err)
	}

	s.logger.Info().
		Ctx(ctx).
		Float64("latitude", lat).
		Float64("longitude", lon).
		Int("days", len(raw.Daily)).
		Dur("duration_ms", time.Since(start)).
		Msg("successfully fetched forecast")

	return raw, nil
}
