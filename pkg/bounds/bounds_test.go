package bounds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"droscher.com/GroundsKeeper/pkg/bounds"
	"droscher.com/GroundsKeeper/pkg/model"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name    string
		coord   model.Coordinate
		country string
		want    bool
	}{
		{name: "anfield in england", coord: model.Coordinate{Lon: -2.9609, Lat: 53.4308}, country: "England", want: true},
		{name: "longitude outside england box", coord: model.Coordinate{Lon: -67.4, Lat: 46.9}, country: "England", want: false},
		{name: "latitude outside england box", coord: model.Coordinate{Lon: -2.9609, Lat: 63.4}, country: "England", want: false},
		{name: "country lookup is case-insensitive", coord: model.Coordinate{Lon: -2.9609, Lat: 53.4308}, country: "england", want: true},
		{name: "unknown country passes world range", coord: model.Coordinate{Lon: 135.5, Lat: 34.7}, country: "Japan", want: true},
		{name: "unknown country still rejects bad longitude", coord: model.Coordinate{Lon: 181.0, Lat: 34.7}, country: "Japan", want: false},
		{name: "unknown country still rejects bad latitude", coord: model.Coordinate{Lon: 135.5, Lat: -91.0}, country: "Japan", want: false},
		{name: "empty country passes world range", coord: model.Coordinate{Lon: 0, Lat: 0}, country: "", want: true},
		{name: "centenario in uruguay", coord: model.Coordinate{Lon: -56.1536, Lat: -34.8945}, country: "Uruguay", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bounds.IsValid(tt.coord, tt.country))
		})
	}
}

func TestIsNearCity(t *testing.T) {
	anfield := model.Coordinate{Lon: -2.9609, Lat: 53.4308}

	assert.True(t, bounds.IsNearCity(anfield, "Liverpool"))
	assert.False(t, bounds.IsNearCity(anfield, "London"))
	assert.True(t, bounds.IsNearCity(anfield, "Some Unknown Town"))
	assert.True(t, bounds.IsNearCity(anfield, ""))
}

func TestCheck_IndependentSeverities(t *testing.T) {
	// Valid for England and near Liverpool: no findings.
	findings := bounds.Check(model.Coordinate{Lon: -2.9609, Lat: 53.4308}, "England", "Liverpool")
	assert.Empty(t, findings)

	// In England but nowhere near London: advisory finding only.
	findings = bounds.Check(model.Coordinate{Lon: -2.9609, Lat: 53.4308}, "England", "London")
	assert.Len(t, findings, 1)
	assert.Equal(t, bounds.SeverityMedium, findings[0].Severity)

	// Outside England and far from Liverpool: both findings.
	findings = bounds.Check(model.Coordinate{Lon: -67.4, Lat: 46.9}, "England", "Liverpool")
	assert.Len(t, findings, 2)
	assert.Equal(t, bounds.SeverityHigh, findings[0].Severity)
	assert.Equal(t, bounds.SeverityMedium, findings[1].Severity)
}

func TestHaversine(t *testing.T) {
	london := model.Coordinate{Lon: -0.1276, Lat: 51.5074}
	manchester := model.Coordinate{Lon: -2.2426, Lat: 53.4808}

	// Roughly 262km between the two city centers.
	distance := bounds.Haversine(london, manchester)
	assert.InDelta(t, 262000, distance, 5000)

	assert.Zero(t, bounds.Haversine(london, london))
}
