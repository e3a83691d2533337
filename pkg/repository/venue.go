package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"droscher.com/GroundsKeeper/pkg/model"
)

var ErrVenueNotFound = errors.New("venue not found")

// VenueRepository is the venue store surface the resolution and
// correction flows build on.
type VenueRepository interface {
	FindVenueByName(ctx context.Context, name, city string) (*model.Venue, error)
	FindVenueByNameFold(ctx context.Context, name, city string) (*model.Venue, error)
	FindVenueByExternalID(ctx context.Context, externalID uint64) (*model.Venue, error)
	ListActiveVenues(ctx context.Context) ([]*model.Venue, error)
	FindVenuesNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]*model.Venue, error)
	SaveVenue(ctx context.Context, venue *model.Venue) (*model.Venue, error)
	UpdateVenueCoordinates(ctx context.Context, venueID uint, coord model.Coordinate) error
	AddVenueAlias(ctx context.Context, venueID uint, alias string) error
	DeleteVenue(ctx context.Context, venueID uint) error
}

// FindVenueByName looks up an active venue by byte-exact name, and city
// when one is given.
func (r *Repository) FindVenueByName(ctx context.Context, name, city string) (*model.Venue, error) {
	query := r.DB.WithContext(ctx).Where("name = ? AND is_active = ?", name, true)
	if city != "" {
		query = query.Where("city = ?", city)
	}

	return r.firstVenue(query)
}

// FindVenueByNameFold is the case-folded variant of FindVenueByName.
// The name must match end-to-end, not as a substring.
func (r *Repository) FindVenueByNameFold(ctx context.Context, name, city string) (*model.Venue, error) {
	query := r.DB.WithContext(ctx).Where("LOWER(name) = LOWER(?) AND is_active = ?", name, true)
	if city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}

	return r.firstVenue(query)
}

// FindVenueByExternalID is a direct key lookup with no fuzzy fallback.
func (r *Repository) FindVenueByExternalID(ctx context.Context, externalID uint64) (*model.Venue, error) {
	return r.firstVenue(r.DB.WithContext(ctx).Where("external_id = ? AND is_active = ?", externalID, true))
}

func (r *Repository) ListActiveVenues(ctx context.Context) ([]*model.Venue, error) {
	var venues []*model.Venue

	result := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&venues)
	if result.Error != nil {
		r.Logger.Error("error listing active venues", zap.Error(result.Error))

		return nil, result.Error
	}

	return venues, nil
}

const distanceSQL = `6371000 * 2 * ASIN(SQRT(POWER(SIN(RADIANS(latitude - ?) / 2), 2) + ` +
	`COS(RADIANS(?)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - ?) / 2), 2)))`

// FindVenuesNear returns active, geocoded venues within radiusMeters of
// the center, nearest first.
func (r *Repository) FindVenuesNear(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]*model.Venue, error) {
	var venues []*model.Venue

	result := r.DB.WithContext(ctx).
		Where("is_active = ? AND longitude IS NOT NULL AND latitude IS NOT NULL", true).
		Where(distanceSQL+" <= ?", center.Lat, center.Lat, center.Lon, radiusMeters).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  distanceSQL,
			Vars: []interface{}{center.Lat, center.Lat, center.Lon},
		}}).
		Find(&venues)
	if result.Error != nil {
		r.Logger.Error("error finding venues near point",
			zap.Float64("lon", center.Lon), zap.Float64("lat", center.Lat), zap.Error(result.Error))

		return nil, result.Error
	}

	return venues, nil
}

func (r *Repository) SaveVenue(ctx context.Context, venue *model.Venue) (*model.Venue, error) {
	if result := r.DB.WithContext(ctx).Create(venue); result.Error != nil {
		return nil, result.Error
	}

	return venue, nil
}

// UpdateVenueCoordinates persists a validated coordinate pair. Writes
// for the same venue are serialized through a per-id lock.
func (r *Repository) UpdateVenueCoordinates(ctx context.Context, venueID uint, coord model.Coordinate) error {
	lock := r.venueLock(venueID)
	lock.Lock()
	defer lock.Unlock()

	result := r.DB.WithContext(ctx).Model(&model.Venue{}).Where("id = ?", venueID).
		Updates(map[string]interface{}{
			"longitude":    coord.Lon,
			"latitude":     coord.Lat,
			"last_updated": r.Clock.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrVenueNotFound
	}

	return nil
}

func (r *Repository) AddVenueAlias(ctx context.Context, venueID uint, alias string) error {
	venueAlias := model.VenueAlias{VenueID: venueID, Alias: alias}

	result := r.DB.WithContext(ctx).
		Where("venue_id = ? AND alias = ?", venueID, alias).
		FirstOrCreate(&venueAlias)

	return result.Error
}

func (r *Repository) DeleteVenue(ctx context.Context, venueID uint) error {
	result := r.DB.WithContext(ctx).Delete(&model.Venue{}, venueID)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrVenueNotFound
	}

	return nil
}

func (r *Repository) firstVenue(query *gorm.DB) (*model.Venue, error) {
	venue := &model.Venue{}

	result := query.Preload("Aliases").First(venue)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}

		return nil, result.Error
	}

	return venue, nil
}
