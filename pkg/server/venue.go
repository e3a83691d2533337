package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/correction"
	"droscher.com/GroundsKeeper/pkg/geocode"
	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/repository"
	"droscher.com/GroundsKeeper/pkg/resolver"
)

var ErrInvalidInput = errors.New("bad request")

type venueResolver interface {
	Resolve(ctx context.Context, ref resolver.Reference) (*resolver.Resolution, error)
}

type issueScanner interface {
	Scan(ctx context.Context) ([]correction.Issue, error)
}

type VenueServer struct {
	logger   *zap.Logger
	resolver venueResolver
	scanner  issueScanner
}

func NewVenueServer(venueResolver venueResolver, scanner issueScanner, logger *zap.Logger) *VenueServer {
	return &VenueServer{resolver: venueResolver, scanner: scanner, logger: logger}
}

// Routes registers the JSON endpoints on mux.
func (s *VenueServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/venues/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/corrections/issues", s.handleIssues)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

type resolveRequest struct {
	Name       string  `json:"name"`
	City       string  `json:"city,omitempty"`
	Country    string  `json:"country,omitempty"`
	ExternalID *uint64 `json:"externalId,omitempty"`
}

type venueResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	// Coordinates is always (longitude, latitude).
	Coordinates *[2]float64 `json:"coordinates,omitempty"`
	ExternalID  *uint64     `json:"externalId,omitempty"`
	Aliases     []string    `json:"aliases,omitempty"`
}

type resolveResponse struct {
	Venue   *venueResponse `json:"venue"`
	State   string         `json:"state"`
	Created bool           `json:"created"`
}

type issueResponse struct {
	ID       string         `json:"id"`
	Venue    *venueResponse `json:"venue"`
	Severity string         `json:"severity"`
	Reason   string         `json:"reason"`
}

func (s *VenueServer) handleResolve(writer http.ResponseWriter, request *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		s.writeError(writer, http.StatusBadRequest, ErrInvalidInput)

		return
	}

	if req.Name == "" && req.ExternalID == nil {
		s.writeError(writer, http.StatusBadRequest, ErrInvalidInput)

		return
	}

	resolution, err := s.resolver.Resolve(request.Context(), resolver.Reference{
		Name:       req.Name,
		City:       req.City,
		Country:    req.Country,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		s.writeError(writer, resolveStatus(err), err)

		return
	}

	s.writeJSON(writer, http.StatusOK, resolveResponse{
		Venue:   venueFromModel(resolution.Venue),
		State:   string(resolution.State),
		Created: resolution.Created,
	})
}

func (s *VenueServer) handleIssues(writer http.ResponseWriter, request *http.Request) {
	issues, err := s.scanner.Scan(request.Context())
	if err != nil {
		s.writeError(writer, http.StatusInternalServerError, err)

		return
	}

	response := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		response = append(response, issueResponse{
			ID:       issue.ID.String(),
			Venue:    venueFromModel(issue.Venue),
			Severity: string(issue.Severity),
			Reason:   issue.Reason,
		})
	}

	s.writeJSON(writer, http.StatusOK, response)
}

func (s *VenueServer) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *VenueServer) writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	if err := json.NewEncoder(writer).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *VenueServer) writeError(writer http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}

	s.writeJSON(writer, status, map[string]string{"error": err.Error()})
}

func resolveStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrVenueNotFound), errors.Is(err, geocode.ErrNoResult):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrUnvalidatedGeocode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geocode.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, geocode.ErrAuthFailure):
		// Broken provider credentials, not bad caller data.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func venueFromModel(venue *model.Venue) *venueResponse {
	if venue == nil {
		return nil
	}

	response := venueResponse{
		ID:         venue.ID,
		Name:       venue.Name,
		City:       venue.City,
		Country:    venue.Country,
		ExternalID: venue.ExternalID,
	}

	if coord, ok := venue.Coordinate(); ok {
		response.Coordinates = &[2]float64{coord.Lon, coord.Lat}
	}

	for _, alias := range venue.Aliases {
		response.Aliases = append(response.Aliases, alias.Alias)
	}

	return &response
}
