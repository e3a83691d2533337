package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"droscher.com/GroundsKeeper/pkg/geocode"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*geocode.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return geocode.NewClient("test-key", server.URL, 5*time.Second, zaptest.NewLogger(t)), server
}

func TestClientLookup_TransposesProviderOrder(t *testing.T) {
	var gotQuery string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")

		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "51.5549", "lon": "-0.1086", "display_name": "Emirates Stadium, London", "importance": 0.82}]`))
	})

	result, err := client.Lookup(context.Background(), "Emirates Stadium", "London", "England")
	require.NoError(t, err)

	assert.Equal(t, "Emirates Stadium, London, England", gotQuery)

	// Provider answers (lat, lon); internal order is (lon, lat).
	assert.InDelta(t, -0.1086, result.Coordinate.Lon, 0.0001)
	assert.InDelta(t, 51.5549, result.Coordinate.Lat, 0.0001)
	assert.Equal(t, "Emirates Stadium, London", result.DisplayName)
	assert.InDelta(t, 0.82, result.Importance, 0.001)
}

func TestClientLookup_OmitsEmptySegments(t *testing.T) {
	var gotQuery string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"lat": "53.4308", "lon": "-2.9609"}]`))
	})

	_, err := client.Lookup(context.Background(), "Anfield", "", "England")
	require.NoError(t, err)
	assert.Equal(t, "Anfield, England", gotQuery)
}

func TestClientLookup_EmptyResultSet(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Lookup(context.Background(), "No Such Ground", "", "")
	assert.ErrorIs(t, err, geocode.ErrNoResult)
}

func TestClientLookup_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Lookup(context.Background(), "Anfield", "Liverpool", "England")
	assert.ErrorIs(t, err, geocode.ErrRateLimited)
}

func TestClientLookup_AuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.Lookup(context.Background(), "Anfield", "Liverpool", "England")
		assert.ErrorIs(t, err, geocode.ErrAuthFailure)
	}
}

func TestClientLookup_UnparsableCoordinates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat": "not-a-number", "lon": "-0.1086"}]`))
	})

	_, err := client.Lookup(context.Background(), "Emirates Stadium", "London", "England")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, geocode.ErrNoResult)
}
