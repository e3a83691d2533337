package match

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/normalize"
	"droscher.com/GroundsKeeper/pkg/repository"
)

type venueStore interface {
	FindVenueByName(ctx context.Context, name, city string) (*model.Venue, error)
	FindVenueByNameFold(ctx context.Context, name, city string) (*model.Venue, error)
	FindVenueByExternalID(ctx context.Context, externalID uint64) (*model.Venue, error)
	ListActiveVenues(ctx context.Context) ([]*model.Venue, error)
	FindVenuesNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]*model.Venue, error)
}

// strategy is one tier of the lookup cascade. Strategies return
// repository.ErrVenueNotFound to pass the query to the next tier.
type strategy interface {
	name() string
	tryMatch(ctx context.Context, store venueStore, name, city string) (*model.Venue, error)
}

// Matcher resolves a free-text venue reference against the store using
// an ordered list of strategies. First match wins; there is no scoring
// across tiers, which keeps the behavior deterministic and auditable.
type Matcher struct {
	store      venueStore
	logger     *zap.Logger
	strategies []strategy
}

func New(store venueStore, logger *zap.Logger) *Matcher {
	return &Matcher{
		store:  store,
		logger: logger,
		strategies: []strategy{
			exactStrategy{},
			foldStrategy{},
			normalizedStrategy{},
		},
	}
}

// FindByReference tries each strategy in order and returns the first
// match, or repository.ErrVenueNotFound when every tier misses.
func (m *Matcher) FindByReference(ctx context.Context, name, city string) (*model.Venue, error) {
	for _, s := range m.strategies {
		venue, err := s.tryMatch(ctx, m.store, name, city)
		if errors.Is(err, repository.ErrVenueNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		m.logger.Debug("venue matched",
			zap.String("strategy", s.name()), zap.String("query", name), zap.Uint("venue_id", venue.ID))

		return venue, nil
	}

	return nil, repository.ErrVenueNotFound
}

// FindByExternalID is a direct key lookup. External ids are expected
// exact, so there is no fuzzy fallback.
func (m *Matcher) FindByExternalID(ctx context.Context, externalID uint64) (*model.Venue, error) {
	return m.store.FindVenueByExternalID(ctx, externalID)
}

// FindNear returns active venues within radiusMeters, nearest first.
func (m *Matcher) FindNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]*model.Venue, error) {
	return m.store.FindVenuesNear(ctx, center, radiusMeters)
}

// FuzzyCandidates returns venues whose normalized name contains the
// normalized query (or vice versa). This tier admits substring
// collisions, so it is never consulted by FindByReference: candidates
// are for manual confirmation only.
func (m *Matcher) FuzzyCandidates(ctx context.Context, name, city string) ([]*model.Venue, error) {
	venues, err := m.store.ListActiveVenues(ctx)
	if err != nil {
		return nil, err
	}

	query := normalize.Name(name)
	queryCity := normalize.Name(city)

	var candidates []*model.Venue

	for _, venue := range venues {
		if query == "" || !containsEither(normalize.Name(venue.Name), query) {
			continue
		}

		if queryCity != "" && normalize.Name(venue.City) != queryCity {
			continue
		}

		candidates = append(candidates, venue)
	}

	return candidates, nil
}

type exactStrategy struct{}

func (exactStrategy) name() string { return "exact" }

func (exactStrategy) tryMatch(ctx context.Context, store venueStore, name, city string) (*model.Venue, error) {
	return store.FindVenueByName(ctx, name, city)
}

type foldStrategy struct{}

func (foldStrategy) name() string { return "case-insensitive" }

func (foldStrategy) tryMatch(ctx context.Context, store venueStore, name, city string) (*model.Venue, error) {
	return store.FindVenueByNameFold(ctx, name, city)
}

// normalizedStrategy scans the active set once and compares normalized
// forms. It is the fallback for punctuation, casing and article drift.
type normalizedStrategy struct{}

func (normalizedStrategy) name() string { return "normalized" }

func (normalizedStrategy) tryMatch(ctx context.Context, store venueStore, name, city string) (*model.Venue, error) {
	venues, err := store.ListActiveVenues(ctx)
	if err != nil {
		return nil, err
	}

	queryName := normalize.Name(name)
	queryCity := normalize.Name(city)

	if queryName == "" {
		return nil, repository.ErrVenueNotFound
	}

	for _, venue := range venues {
		if normalize.Name(venue.Name) != queryName {
			continue
		}

		if queryCity != "" && normalize.Name(venue.City) != queryCity {
			continue
		}

		return venue, nil
	}

	return nil, repository.ErrVenueNotFound
}

func containsEither(stored, query string) bool {
	return stored == query ||
		len(query) >= 4 && (strings.Contains(stored, query) || strings.Contains(query, stored))
}
