package correction

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"droscher.com/GroundsKeeper/pkg/model"
)

// ManualCorrection is operator-determined ground truth for one venue,
// keyed by external id in the corrections file. Applying it bypasses
// geocoding entirely.
type ManualCorrection struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
	// CorrectCoordinates is stored in (lon, lat) order.
	CorrectCoordinates [2]float64 `json:"correctCoordinates"`
}

func (m ManualCorrection) Coordinate() model.Coordinate {
	return model.Coordinate{Lon: m.CorrectCoordinates[0], Lat: m.CorrectCoordinates[1]}
}

// LoadManualCorrections reads the operator-maintained corrections file.
// An empty path yields an empty table.
func LoadManualCorrections(path string) (map[uint64]ManualCorrection, error) {
	if path == "" {
		return map[uint64]ManualCorrection{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corrections file: %w", err)
	}

	var byKey map[string]ManualCorrection
	if err = json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("parse corrections file: %w", err)
	}

	corrections := make(map[uint64]ManualCorrection, len(byKey))

	for key, correction := range byKey {
		externalID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrections file: invalid external id %q: %w", key, err)
		}

		corrections[externalID] = correction
	}

	return corrections, nil
}
