package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/GroundsKeeper/pkg/model"
	"droscher.com/GroundsKeeper/pkg/telemetry"
)

// Key is the cache identity for a geocoding query. The triple is raw,
// not normalized; callers that want normalization-aware sharing
// normalize upstream.
type Key struct {
	Name    string
	City    string
	Country string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Name, k.City, k.Country)
}

type cacheEntry struct {
	coord     model.Coordinate
	tombstone bool
}

type provider interface {
	Lookup(ctx context.Context, name, city, country string) (Result, error)
}

// Cache wraps a geocoding provider with a process-lifetime result cache
// and a global rate-limit gate. Every outbound provider call, from any
// caller, is serialized through the gate with a minimum spacing.
type Cache struct {
	provider provider
	clock    clockwork.Clock
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	minInterval  time.Duration
	retryBackoff time.Duration

	mu      sync.Mutex
	entries map[Key]cacheEntry

	gateMu   sync.Mutex
	nextCall time.Time
}

func NewCache(provider provider, clock clockwork.Clock, minInterval, retryBackoff time.Duration, logger *zap.Logger, metrics *telemetry.Metrics) *Cache {
	return &Cache{
		provider:     provider,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		minInterval:  minInterval,
		retryBackoff: retryBackoff,
		entries:      make(map[Key]cacheEntry),
	}
}

// Resolve returns coordinates for the (name, city, country) triple,
// consulting the cache first. Empty provider results are cached as
// tombstones so repeated bad queries never re-hit the network. A 429 is
// retried once after the backoff; auth failures fail fast and are not
// cached.
func (c *Cache) Resolve(ctx context.Context, name, city, country string) (model.Coordinate, error) {
	key := Key{Name: name, City: city, Country: country}

	if entry, found := c.peek(key); found {
		if entry.tombstone {
			c.metrics.GeocodeCacheLookups.WithLabelValues("tombstone").Inc()

			return model.Coordinate{}, fmt.Errorf("%s: %w", key, ErrNoResult)
		}

		c.metrics.GeocodeCacheLookups.WithLabelValues("hit").Inc()

		return entry.coord, nil
	}

	c.metrics.GeocodeCacheLookups.WithLabelValues("miss").Inc()

	c.gateMu.Lock()
	defer c.gateMu.Unlock()

	// A concurrent caller may have resolved this key while we waited
	// for the gate; a second provider call for it would be wasted.
	if entry, found := c.peek(key); found {
		if entry.tombstone {
			return model.Coordinate{}, fmt.Errorf("%s: %w", key, ErrNoResult)
		}

		return entry.coord, nil
	}

	result, err := c.callProvider(ctx, key)
	if errors.Is(err, ErrRateLimited) {
		// One retry; callProvider already pushed the gate out by the
		// backoff interval, so this waits >= retryBackoff.
		result, err = c.callProvider(ctx, key)
	}

	switch {
	case err == nil:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		c.store(key, cacheEntry{coord: result.Coordinate})

		return result.Coordinate, nil
	case errors.Is(err, ErrNoResult):
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.store(key, cacheEntry{tombstone: true})

		return model.Coordinate{}, fmt.Errorf("%s: %w", key, err)
	case errors.Is(err, ErrRateLimited):
		c.metrics.GeocodeRequests.WithLabelValues("rate_limited").Inc()

		return model.Coordinate{}, fmt.Errorf("%s: %w", key, err)
	case errors.Is(err, ErrAuthFailure):
		c.metrics.GeocodeRequests.WithLabelValues("auth").Inc()

		return model.Coordinate{}, err
	default:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()

		return model.Coordinate{}, err
	}
}

// ResolveBatch resolves the distinct keys in the batch, serially and
// rate-limited like any other caller. One failing entry never aborts
// the batch; the returned error aggregates per-item failures.
func (c *Cache) ResolveBatch(ctx context.Context, keys []Key) (map[Key]model.Coordinate, error) {
	resolved := make(map[Key]model.Coordinate)
	seen := make(map[Key]struct{}, len(keys))

	var errs error

	for _, key := range keys {
		if _, duplicate := seen[key]; duplicate {
			continue
		}

		seen[key] = struct{}{}

		if err := ctx.Err(); err != nil {
			return resolved, multierr.Append(errs, err)
		}

		coord, err := c.Resolve(ctx, key.Name, key.City, key.Country)
		if err != nil {
			errs = multierr.Append(errs, err)

			continue
		}

		resolved[key] = coord
	}

	return resolved, errs
}

func (c *Cache) peek(key Key) (cacheEntry, bool) {
	c.mu.Lock()
	entry, found := c.entries[key]
	c.mu.Unlock()

	return entry, found
}

func (c *Cache) store(key Key, entry cacheEntry) {
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// callProvider waits out the gate spacing and issues one provider call.
// The caller must hold gateMu, which both serializes outbound calls and
// keeps concurrent misses for the same key from racing past the cache.
func (c *Cache) callProvider(ctx context.Context, key Key) (Result, error) {
	if wait := c.nextCall.Sub(c.clock.Now()); wait > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-c.clock.After(wait):
		}
	}

	result, err := c.provider.Lookup(ctx, key.Name, key.City, key.Country)

	spacing := c.minInterval
	if errors.Is(err, ErrRateLimited) {
		c.logger.Warn("geocode provider rate limited", zap.String("key", key.String()))
		spacing = c.retryBackoff
	}

	c.nextCall = c.clock.Now().Add(spacing)

	return result, err
}
