package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/repository"
	"droscher.com/GroundsKeeper/pkg/telemetry"
)

// State names the orchestrator's position in the resolution state
// machine. Resolutions end in StateResolved or StateFailed.
type State string

const (
	StateSearching  State = "searching"
	StateValidating State = "validating"
	StateGeocoding  State = "geocoding"
	StateResolved   State = "resolved"
	StateFailed     State = "failed"
)

// ErrUnvalidatedGeocode means the geocoder answered but the coordinates
// failed bounds validation, so nothing was persisted.
var ErrUnvalidatedGeocode = errors.New("geocoded coordinates failed validation")

// Reference is the noisy venue identity a caller wants resolved.
type Reference struct {
	Name       string
	City       string
	Country    string
	ExternalID *uint64
}

// Resolution is the outcome of one resolve call.
type Resolution struct {
	Venue   *model.Venue
	State   State
	Created bool
}

type matcher interface {
	FindByReference(ctx context.Context, name, city string) (*model.Venue, error)
	FindByExternalID(ctx context.Context, externalID uint64) (*model.Venue, error)
}

type venueStore interface {
	SaveVenue(ctx context.Context, venue *model.Venue) (*model.Venue, error)
	UpdateVenueCoordinates(ctx context.Context, venueID uint, coord model.Coordinate) error
	AddVenueAlias(ctx context.Context, venueID uint, alias string) error
}

type geocoder interface {
	Resolve(ctx context.Context, name, city, country string) (model.Coordinate, error)
}

// Resolver composes matching, validation and geocoding into the single
// public operation: resolve a venue reference to a canonical record.
type Resolver struct {
	matcher  matcher
	store    venueStore
	geocoder geocoder
	clock    clockwork.Clock
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

func New(matcher matcher, store venueStore, geocoder geocoder, clock clockwork.Clock, logger *zap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		matcher:  matcher,
		store:    store,
		geocoder: geocoder,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve walks Searching -> Validating -> Geocoding until the
// reference maps to a venue with validated coordinates. NotFound and
// invalid coordinates are recovered by moving to the next state; only
// geocoding failures are terminal.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Resolution, error) {
	venue, err := r.search(ctx, ref)
	if err != nil && !errors.Is(err, repository.ErrVenueNotFound) {
		return nil, err
	}

	if venue != nil {
		if coord, ok := venue.Coordinate(); ok && bounds.IsValid(coord, venue.Country) {
			r.recordAlias(ctx, venue, ref.Name)
			r.metrics.Resolutions.WithLabelValues(string(StateResolved)).Inc()

			return &Resolution{Venue: venue, State: StateResolved}, nil
		}

		r.logger.Info("stored venue has invalid or missing coordinates, re-geocoding",
			zap.Uint("venue_id", venue.ID), zap.String("name", venue.Name))
	}

	return r.geocodeAndPersist(ctx, ref, venue)
}

func (r *Resolver) search(ctx context.Context, ref Reference) (*model.Venue, error) {
	if ref.ExternalID != nil {
		venue, err := r.matcher.FindByExternalID(ctx, *ref.ExternalID)
		if err == nil || !errors.Is(err, repository.ErrVenueNotFound) {
			return venue, err
		}
	}

	if ref.Name == "" {
		return nil, repository.ErrVenueNotFound
	}

	return r.matcher.FindByReference(ctx, ref.Name, ref.City)
}

func (r *Resolver) geocodeAndPersist(ctx context.Context, ref Reference, existing *model.Venue) (*Resolution, error) {
	name, city, country := ref.Name, ref.City, ref.Country
	if existing != nil {
		// A matched record's own identity beats the (possibly
		// sparser) caller reference.
		name, city, country = existing.Name, existing.City, existing.Country
	}

	coord, err := r.geocoder.Resolve(ctx, name, city, country)
	if err != nil {
		r.metrics.Resolutions.WithLabelValues(string(StateFailed)).Inc()

		return &Resolution{State: StateFailed}, err
	}

	if !bounds.IsValid(coord, country) {
		r.metrics.Resolutions.WithLabelValues(string(StateFailed)).Inc()

		return &Resolution{State: StateFailed}, fmt.Errorf("%q: %w", name, ErrUnvalidatedGeocode)
	}

	if existing != nil {
		if err = r.store.UpdateVenueCoordinates(ctx, existing.ID, coord); err != nil {
			return nil, err
		}

		existing.SetCoordinate(coord, r.clock.Now())
		r.recordAlias(ctx, existing, ref.Name)
		r.metrics.Resolutions.WithLabelValues(string(StateResolved)).Inc()

		return &Resolution{Venue: existing, State: StateResolved}, nil
	}

	venue := &model.Venue{
		Name:     ref.Name,
		City:     ref.City,
		Country:  ref.Country,
		IsActive: true,
	}
	venue.SetCoordinate(coord, r.clock.Now())

	saved, err := r.store.SaveVenue(ctx, venue)
	if err != nil {
		return nil, err
	}

	r.logger.Info("created venue from geocoded reference",
		zap.Uint("venue_id", saved.ID), zap.String("name", saved.Name),
		zap.Float64("lon", coord.Lon), zap.Float64("lat", coord.Lat))
	r.metrics.Resolutions.WithLabelValues(string(StateResolved)).Inc()

	return &Resolution{Venue: saved, State: StateResolved, Created: true}, nil
}

// recordAlias keeps the query spelling as an alias when it differs from
// the canonical name. Best effort; resolution never fails over it.
func (r *Resolver) recordAlias(ctx context.Context, venue *model.Venue, queryName string) {
	if queryName == "" || queryName == venue.Name {
		return
	}

	if err := r.store.AddVenueAlias(ctx, venue.ID, queryName); err != nil {
		r.logger.Warn("failed to record venue alias",
			zap.Uint("venue_id", venue.ID), zap.String("alias", queryName), zap.Error(err))
	}
}
