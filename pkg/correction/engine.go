package correction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/telemetry"
)

// ErrAmbiguousGroup marks a duplicate group with no bounds-valid member.
// Nothing is deleted automatically; the group needs manual review.
var ErrAmbiguousGroup = errors.New("ambiguous duplicate group")

// ErrUnvalidated means a re-geocoded coordinate still failed validation.
// The engine never writes coordinates it cannot validate.
var ErrUnvalidated = errors.New("corrected coordinates failed validation")

type venueStore interface {
	ListActiveVenues(ctx context.Context) ([]*model.Venue, error)
	UpdateVenueCoordinates(ctx context.Context, venueID uint, coord model.Coordinate) error
	DeleteVenue(ctx context.Context, venueID uint) error
}

type geocoder interface {
	Resolve(ctx context.Context, name, city, country string) (model.Coordinate, error)
}

// Issue is one failed validation check against one venue. A venue can
// yield up to two issues per scan: the country-bounds and city-distance
// checks are independent.
type Issue struct {
	ID       uuid.UUID
	Venue    *model.Venue
	Severity bounds.Severity
	Reason   string
}

// Outcome of applying a single correction.
type Outcome string

const (
	OutcomeManual     Outcome = "manual"
	OutcomeGeocoded   Outcome = "geocoded"
	OutcomeUnresolved Outcome = "unresolved"
)

// Report aggregates a batch correction run. Per-item failures never
// abort the batch.
type Report struct {
	Applied    int
	Unresolved int
	Outcomes   map[uuid.UUID]Outcome
}

// Engine detects venues with invalid coordinates or duplicate
// identities and produces corrective actions. It shares the geocode
// cache and its rate gate with live resolution.
type Engine struct {
	store    venueStore
	geocoder geocoder
	manual   map[uint64]ManualCorrection
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

func NewEngine(store venueStore, geocoder geocoder, manual map[uint64]ManualCorrection, logger *zap.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		store:    store,
		geocoder: geocoder,
		manual:   manual,
		logger:   logger,
		metrics:  metrics,
	}
}

// Scan validates every active venue with coordinates and returns one
// issue per failed check.
func (e *Engine) Scan(ctx context.Context) ([]Issue, error) {
	venues, err := e.store.ListActiveVenues(ctx)
	if err != nil {
		return nil, err
	}

	var issues []Issue

	for _, venue := range venues {
		coord, ok := venue.Coordinate()
		if !ok {
			continue
		}

		for _, finding := range bounds.Check(coord, venue.Country, venue.City) {
			e.metrics.CorrectionIssues.WithLabelValues(string(finding.Severity)).Inc()
			issues = append(issues, Issue{
				ID:       uuid.New(),
				Venue:    venue,
				Severity: finding.Severity,
				Reason:   finding.Reason,
			})
		}
	}

	e.logger.Info("correction scan complete",
		zap.Int("venues", len(venues)), zap.Int("issues", len(issues)))

	return issues, nil
}

// Apply corrects one issue. A manual correction keyed by external id
// wins outright; otherwise the venue is re-geocoded and the result is
// persisted only when it passes validation again.
func (e *Engine) Apply(ctx context.Context, issue Issue) (Outcome, error) {
	venue := issue.Venue

	if venue.ExternalID != nil {
		if manual, ok := e.manual[*venue.ExternalID]; ok {
			coord := manual.Coordinate()
			if err := e.store.UpdateVenueCoordinates(ctx, venue.ID, coord); err != nil {
				return OutcomeUnresolved, err
			}

			e.metrics.CorrectionsApplied.WithLabelValues(string(OutcomeManual)).Inc()
			e.logger.Info("applied manual correction",
				zap.Uint("venue_id", venue.ID), zap.Uint64("external_id", *venue.ExternalID))

			return OutcomeManual, nil
		}
	}

	coord, err := e.geocoder.Resolve(ctx, venue.Name, venue.City, venue.Country)
	if err != nil {
		e.metrics.CorrectionsApplied.WithLabelValues(string(OutcomeUnresolved)).Inc()

		return OutcomeUnresolved, fmt.Errorf("re-geocode venue %d: %w", venue.ID, err)
	}

	if findings := bounds.Check(coord, venue.Country, venue.City); len(findings) > 0 {
		e.metrics.CorrectionsApplied.WithLabelValues(string(OutcomeUnresolved)).Inc()

		return OutcomeUnresolved, fmt.Errorf("venue %d: %w: %s", venue.ID, ErrUnvalidated, findings[0].Reason)
	}

	if err = e.store.UpdateVenueCoordinates(ctx, venue.ID, coord); err != nil {
		return OutcomeUnresolved, err
	}

	e.metrics.CorrectionsApplied.WithLabelValues(string(OutcomeGeocoded)).Inc()

	return OutcomeGeocoded, nil
}

// ApplyAll applies a batch of issues, stopping between items when the
// context is cancelled so no venue is ever left half-corrected.
func (e *Engine) ApplyAll(ctx context.Context, issues []Issue) (*Report, error) {
	report := &Report{Outcomes: make(map[uuid.UUID]Outcome, len(issues))}

	var errs error

	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}

		outcome, err := e.Apply(ctx, issue)
		report.Outcomes[issue.ID] = outcome

		if err != nil {
			report.Unresolved++
			errs = multierr.Append(errs, err)

			continue
		}

		report.Applied++
	}

	return report, errs
}
