package bounds

import (
	"fmt"
	"math"
	"strings"

	"droscher.com/GroundsKeeper/pkg/model"
)

type Severity string

const (
	// SeverityHigh marks coordinates outside the world range or the
	// venue country's bounding box.
	SeverityHigh Severity = "high"
	// SeverityMedium marks coordinates implausibly far from a known
	// city center. Advisory only.
	SeverityMedium Severity = "medium"
)

// Finding describes one failed validation check.
type Finding struct {
	Severity Severity
	Reason   string
}

// Box is a per-country latitude/longitude rectangle. A sanity filter,
// not a precise boundary, so the extents carry a margin.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

func (b Box) contains(coord model.Coordinate) bool {
	return coord.Lat >= b.MinLat && coord.Lat <= b.MaxLat &&
		coord.Lon >= b.MinLon && coord.Lon <= b.MaxLon
}

var countryBoxes = map[string]Box{
	"england":          {MinLat: 49.8, MaxLat: 55.9, MinLon: -6.5, MaxLon: 2.1},
	"scotland":         {MinLat: 54.5, MaxLat: 61.0, MinLon: -8.7, MaxLon: -0.5},
	"wales":            {MinLat: 51.3, MaxLat: 53.5, MinLon: -5.5, MaxLon: -2.6},
	"northern ireland": {MinLat: 54.0, MaxLat: 55.4, MinLon: -8.2, MaxLon: -5.3},
	"ireland":          {MinLat: 51.3, MaxLat: 55.5, MinLon: -10.7, MaxLon: -5.9},
	"france":           {MinLat: 41.2, MaxLat: 51.3, MinLon: -5.3, MaxLon: 9.7},
	"germany":          {MinLat: 47.2, MaxLat: 55.1, MinLon: 5.8, MaxLon: 15.1},
	"spain":            {MinLat: 35.9, MaxLat: 43.9, MinLon: -9.4, MaxLon: 4.4},
	"italy":            {MinLat: 36.5, MaxLat: 47.2, MinLon: 6.6, MaxLon: 18.6},
	"portugal":         {MinLat: 36.8, MaxLat: 42.2, MinLon: -9.6, MaxLon: -6.1},
	"netherlands":      {MinLat: 50.7, MaxLat: 53.6, MinLon: 3.3, MaxLon: 7.3},
	"belgium":          {MinLat: 49.4, MaxLat: 51.6, MinLon: 2.5, MaxLon: 6.5},
	"switzerland":      {MinLat: 45.8, MaxLat: 47.9, MinLon: 5.9, MaxLon: 10.6},
	"austria":          {MinLat: 46.3, MaxLat: 49.1, MinLon: 9.4, MaxLon: 17.2},
	"united states":    {MinLat: 24.3, MaxLat: 49.5, MinLon: -125.0, MaxLon: -66.8},
	"mexico":           {MinLat: 14.4, MaxLat: 32.8, MinLon: -118.5, MaxLon: -86.6},
	"brazil":           {MinLat: -34.0, MaxLat: 5.4, MinLon: -74.1, MaxLon: -34.6},
	"argentina":        {MinLat: -55.2, MaxLat: -21.7, MinLon: -73.7, MaxLon: -53.5},
	"uruguay":          {MinLat: -35.1, MaxLat: -30.0, MinLon: -58.5, MaxLon: -53.0},
}

var cityCenters = map[string]model.Coordinate{
	"london":      {Lon: -0.1276, Lat: 51.5074},
	"manchester":  {Lon: -2.2426, Lat: 53.4808},
	"liverpool":   {Lon: -2.9916, Lat: 53.4084},
	"birmingham":  {Lon: -1.8904, Lat: 52.4862},
	"leeds":       {Lon: -1.5491, Lat: 53.8008},
	"newcastle":   {Lon: -1.6178, Lat: 54.9783},
	"glasgow":     {Lon: -4.2518, Lat: 55.8642},
	"edinburgh":   {Lon: -3.1883, Lat: 55.9533},
	"cardiff":     {Lon: -3.1791, Lat: 51.4816},
	"dublin":      {Lon: -6.2603, Lat: 53.3498},
	"paris":       {Lon: 2.3522, Lat: 48.8566},
	"marseille":   {Lon: 5.3698, Lat: 43.2965},
	"lyon":        {Lon: 4.8357, Lat: 45.7640},
	"madrid":      {Lon: -3.7038, Lat: 40.4168},
	"barcelona":   {Lon: 2.1734, Lat: 41.3851},
	"seville":     {Lon: -5.9845, Lat: 37.3891},
	"munich":      {Lon: 11.5820, Lat: 48.1351},
	"berlin":      {Lon: 13.4050, Lat: 52.5200},
	"dortmund":    {Lon: 7.4653, Lat: 51.5136},
	"milan":       {Lon: 9.1900, Lat: 45.4642},
	"turin":       {Lon: 7.6869, Lat: 45.0703},
	"rome":        {Lon: 12.4964, Lat: 41.9028},
	"naples":      {Lon: 14.2681, Lat: 40.8518},
	"amsterdam":   {Lon: 4.9041, Lat: 52.3676},
	"lisbon":      {Lon: -9.1393, Lat: 38.7223},
	"porto":       {Lon: -8.6291, Lat: 41.1579},
	"montevideo":  {Lon: -56.1645, Lat: -34.9011},
	"buenos aires": {Lon: -58.3816, Lat: -34.6037},
	"rio de janeiro": {Lon: -43.1729, Lat: -22.9068},
	"sao paulo":   {Lon: -46.6333, Lat: -23.5505},
}

const (
	earthRadiusMeters = 6371000.0
	cityRadiusMeters  = 50000.0
)

// IsValid reports whether coordinates satisfy the world range and, when
// the country has a known bounding box, fall inside it. Bounds checking
// is a positive assertion: unknown countries pass.
func IsValid(coord model.Coordinate, country string) bool {
	if !coord.InWorldRange() {
		return false
	}

	box, known := countryBoxes[strings.ToLower(strings.TrimSpace(country))]
	if !known {
		return true
	}

	return box.contains(coord)
}

// IsNearCity reports whether coordinates fall within 50km of a known
// city center. Passes automatically for cities not in the table.
func IsNearCity(coord model.Coordinate, city string) bool {
	center, known := cityCenters[strings.ToLower(strings.TrimSpace(city))]
	if !known {
		return true
	}

	return Haversine(coord, center) <= cityRadiusMeters
}

// Check runs both validations and returns one Finding per failed check.
// The country-bounds failure is load-bearing (high); the city-distance
// failure is advisory (medium). The two are never conflated.
func Check(coord model.Coordinate, country, city string) []Finding {
	var findings []Finding

	if !IsValid(coord, country) {
		findings = append(findings, Finding{
			Severity: SeverityHigh,
			Reason:   fmt.Sprintf("coordinates (%.4f, %.4f) outside bounds for country %q", coord.Lon, coord.Lat, country),
		})
	}

	if !IsNearCity(coord, city) {
		findings = append(findings, Finding{
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("coordinates (%.4f, %.4f) more than 50km from city %q", coord.Lon, coord.Lat, city),
		})
	}

	return findings
}

// Haversine returns the great-circle distance between two coordinates
// in meters.
func Haversine(a, b model.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
