package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.openly.dev/pointy"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/correction"
	"droscher.com/GroundsKeeper/pkg/geocode"
	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/resolver"
	"droscher.com/GroundsKeeper/pkg/server"
)

type fakeResolver struct {
	resolution *resolver.Resolution
	err        error
	lastRef    resolver.Reference
}

func (f *fakeResolver) Resolve(_ context.Context, ref resolver.Reference) (*resolver.Resolution, error) {
	f.lastRef = ref

	return f.resolution, f.err
}

type fakeScanner struct {
	issues []correction.Issue
	err    error
}

func (f *fakeScanner) Scan(_ context.Context) ([]correction.Issue, error) {
	return f.issues, f.err
}

type VenueServerTestSuite struct {
	suite.Suite
	resolver     *fakeResolver
	scanner      *fakeScanner
	mux          *http.ServeMux
	observedLogs *observer.ObservedLogs
}

func TestVenueServerTestSuite(t *testing.T) {
	suite.Run(t, new(VenueServerTestSuite))
}

func (suite *VenueServerTestSuite) SetupTest() {
	suite.resolver = &fakeResolver{}
	suite.scanner = &fakeScanner{}
	observedZapCore, observedLogs := observer.New(zap.InfoLevel)
	suite.observedLogs = observedLogs

	service := server.NewVenueServer(suite.resolver, suite.scanner, zap.New(observedZapCore))
	suite.mux = http.NewServeMux()
	service.Routes(suite.mux)
}

func (suite *VenueServerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	suite.mux.ServeHTTP(recorder, request)

	return recorder
}

func (suite *VenueServerTestSuite) TestResolve_Success() {
	venue := &model.Venue{
		Name:      "Emirates Stadium",
		City:      "London",
		Country:   "England",
		Longitude: pointy.Float64(-0.1086),
		Latitude:  pointy.Float64(51.5549),
	}
	venue.ID = 42
	suite.resolver.resolution = &resolver.Resolution{Venue: venue, State: resolver.StateResolved, Created: true}

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve",
		`{"name":"Emirates Stadium","city":"London","country":"England"}`)

	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Equal("application/json", recorder.Header().Get("Content-Type"))

	var response struct {
		Venue struct {
			ID          uint        `json:"id"`
			Coordinates *[2]float64 `json:"coordinates"`
		} `json:"venue"`
		State   string `json:"state"`
		Created bool   `json:"created"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Equal(uint(42), response.Venue.ID)
	suite.Require().NotNil(response.Venue.Coordinates)
	suite.Equal([2]float64{-0.1086, 51.5549}, *response.Venue.Coordinates)
	suite.Equal("resolved", response.State)
	suite.True(response.Created)

	suite.Equal("Emirates Stadium", suite.resolver.lastRef.Name)
	suite.Equal("London", suite.resolver.lastRef.City)
}

func (suite *VenueServerTestSuite) TestResolve_ExternalIDOnlyIsValid() {
	venue := &model.Venue{Name: "Anfield", ExternalID: pointy.Uint64(550)}
	venue.ID = 7
	suite.resolver.resolution = &resolver.Resolution{Venue: venue, State: resolver.StateResolved}

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"externalId":550}`)

	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Require().NotNil(suite.resolver.lastRef.ExternalID)
	suite.Equal(uint64(550), *suite.resolver.lastRef.ExternalID)
}

func (suite *VenueServerTestSuite) TestResolve_EmptyReferenceRejected() {
	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{}`)

	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *VenueServerTestSuite) TestResolve_MalformedBodyRejected() {
	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"name":`)

	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *VenueServerTestSuite) TestResolve_NoResultMapsToNotFound() {
	suite.resolver.err = geocode.ErrNoResult

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"name":"No Such Ground"}`)

	suite.Equal(http.StatusNotFound, recorder.Code)
}

func (suite *VenueServerTestSuite) TestResolve_UnvalidatedMapsToUnprocessable() {
	suite.resolver.err = resolver.ErrUnvalidatedGeocode

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"name":"Anfield"}`)

	suite.Equal(http.StatusUnprocessableEntity, recorder.Code)
}

func (suite *VenueServerTestSuite) TestResolve_RateLimitedMapsTo429() {
	suite.resolver.err = geocode.ErrRateLimited

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"name":"Anfield"}`)

	suite.Equal(http.StatusTooManyRequests, recorder.Code)
}

func (suite *VenueServerTestSuite) TestResolve_AuthFailureMapsToBadGateway() {
	suite.resolver.err = geocode.ErrAuthFailure

	recorder := suite.do(http.MethodPost, "/v1/venues/resolve", `{"name":"Anfield"}`)

	suite.Equal(http.StatusBadGateway, recorder.Code)
}

func (suite *VenueServerTestSuite) TestIssues_ListsFindings() {
	venue := &model.Venue{Name: "Anfield", Country: "England"}
	venue.ID = 9
	suite.scanner.issues = []correction.Issue{{
		ID:       uuid.New(),
		Venue:    venue,
		Severity: bounds.SeverityHigh,
		Reason:   "coordinates outside country bounds",
	}}

	recorder := suite.do(http.MethodGet, "/v1/corrections/issues", "")

	suite.Require().Equal(http.StatusOK, recorder.Code)

	var response []struct {
		Severity string `json:"severity"`
		Reason   string `json:"reason"`
		Venue    struct {
			ID uint `json:"id"`
		} `json:"venue"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Require().Len(response, 1)
	suite.Equal("high", response[0].Severity)
	suite.Equal(uint(9), response[0].Venue.ID)
}

func (suite *VenueServerTestSuite) TestIssues_EmptyScanIsEmptyArray() {
	recorder := suite.do(http.MethodGet, "/v1/corrections/issues", "")

	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Equal("[]", strings.TrimSpace(recorder.Body.String()))
}

func (suite *VenueServerTestSuite) TestHealthz() {
	recorder := suite.do(http.MethodGet, "/healthz", "")

	suite.Equal(http.StatusOK, recorder.Code)
}
