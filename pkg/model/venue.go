package model

import (
	"time"

	"go.openly.dev/pointy"
	"gorm.io/gorm"
)

// Coordinate is a (longitude, latitude) pair in GeoJSON order. Carrying
// the order in the type keeps lat/lon transpositions out of the core.
type Coordinate struct {
	Lon float64
	Lat float64
}

func (c Coordinate) InWorldRange() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

type Venue struct {
	gorm.Model
	Name           string `gorm:"index"`
	City           string
	Country        string
	Longitude      *float64
	Latitude       *float64
	Capacity       *uint64
	Surface        *string
	Address        *string
	ImageURL       string
	ExternalID     *uint64 `gorm:"index"`
	ExternalSource *string
	IsActive       bool `gorm:"default:true"`
	LastUpdated    time.Time
	Aliases        []VenueAlias `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type VenueAlias struct {
	gorm.Model
	VenueID uint `gorm:"index"`
	Alias   string
}

// Coordinate returns the stored position, or false when the venue has
// never been geocoded.
func (v *Venue) Coordinate() (Coordinate, bool) {
	if v.Longitude == nil || v.Latitude == nil {
		return Coordinate{}, false
	}

	return Coordinate{Lon: *v.Longitude, Lat: *v.Latitude}, true
}

func (v *Venue) SetCoordinate(coord Coordinate, now time.Time) {
	v.Longitude = pointy.Float64(coord.Lon)
	v.Latitude = pointy.Float64(coord.Lat)
	v.LastUpdated = now
}
