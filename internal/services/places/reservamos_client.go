package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/city-forecast-api/internal/models"
)

// ErrUnexpectedStatus is returned when the places API answers with anything
// other than 201 Created.
var ErrUnexpectedStatus = errors.New("places API unexpected status")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientReservamos searches places on the Reservamos API.
type ClientReservamos struct {
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

func NewClientReservamos(apiURL string, httpClient HTTPClient, logger zerolog.Logger) *ClientReservamos {
	return &ClientReservamos{apiURL: apiURL, client: httpClient, logger: logger}
}

func (c *ClientReservamos) buildURL(query string) (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Lookup returns the raw places matching query.
func (c *ClientReservamos) Lookup(ctx context.Context, query string) ([]models.Place, error) {
	start := time.Now()
	target, err := c.buildURL(query)
	if err != nil {
		return nil, fmt.Errorf("build places URL: %w", err)
	}

	c.logger.Debug().
		Ctx(ctx).
		Str("query", query).
		Str("url", target).
		Msg("starting places request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().
			Ctx(ctx).
			Err(err).
			Str("query", query).
			Msg("error sending HTTP request to places API")
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().
				Err(cerr).
				Str("query", query).
				Msg("failed to close response body")
		}
	}()

	// The places API signals success with 201.
	if resp.StatusCode != http.StatusCreated {
		c.logger.Warn().
			Ctx(ctx).
			Str("query", query).
			Int("status", resp.StatusCode).
			Msg("places API returned non-201 status")
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	var places []models.Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.logger.Error().
			Ctx(ctx).
			Err(err).
			Str("query", query).
			Msg("failed to decode places response")
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	c.logger.Info().
		Ctx(ctx).
		Str("query", query).
		Int("places", len(places)).
		Dur("duration_ms", time.Since(start)).
		Msg("places lookup finished")

	return places, nil
}
