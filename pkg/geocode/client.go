package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/model"
)

var (
	// ErrNoResult means the provider returned an empty result set for
	// the query. Cached as a tombstone by Cache.
	ErrNoResult = errors.New("no geocoding result")
	// ErrRateLimited means the provider answered 429. Retried once by
	// Cache after a backoff, then surfaced.
	ErrRateLimited = errors.New("geocoding rate limited")
	// ErrAuthFailure means the API key was rejected (401/403). Never
	// retried and never cached.
	ErrAuthFailure = errors.New("geocoding authentication failed")
)

// Result is one provider answer, already transposed into internal
// (lon, lat) order.
type Result struct {
	Coordinate  model.Coordinate
	DisplayName string
	Importance  float64
}

// Client queries a Nominatim-style geocoding endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// The provider responds with lat/lon as strings in (lat, lon) order.
type providerPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// Lookup issues a single best-result query for "name, city, country",
// omitting empty segments.
func (c *Client) Lookup(ctx context.Context, name, city, country string) (Result, error) {
	segments := make([]string, 0, 3)

	for _, segment := range []string{name, city, country} {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	params := url.Values{}
	params.Set("q", strings.Join(segments, ", "))
	params.Set("format", "json")
	params.Set("limit", "1")

	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return Result{}, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{}, fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
	default:
		return Result{}, fmt.Errorf("geocode provider status %d", resp.StatusCode)
	}

	var places []providerPlace
	if err = json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		return Result{}, ErrNoResult
	}

	place := places[0]

	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lat %q: %w", place.Lat, err)
	}

	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lon %q: %w", place.Lon, err)
	}

	c.logger.Debug("geocoded",
		zap.String("query", params.Get("q")),
		zap.String("display_name", place.DisplayName),
		zap.Float64("importance", place.Importance))

	// Re-pair into internal (lon, lat) order.
	return Result{
		Coordinate:  model.Coordinate{Lon: lon, Lat: lat},
		DisplayName: place.DisplayName,
		Importance:  place.Importance,
	}, nil
}
