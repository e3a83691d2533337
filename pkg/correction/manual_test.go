package correction_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droscher.com/GroundsKeeper/pkg/correction"
	"droscher.com/GroundsKeeper/pkg/model"
)

func TestLoadManualCorrections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	content := `{
		"556": {"name": "Old Trafford", "city": "Manchester", "country": "England", "correctCoordinates": [-2.2913, 53.4631]},
		"494": {"name": "Emirates Stadium", "city": "London", "country": "England", "correctCoordinates": [-0.1086, 51.5549]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	corrections, err := correction.LoadManualCorrections(path)
	require.NoError(t, err)

	require.Len(t, corrections, 2)
	assert.Equal(t, "Old Trafford", corrections[556].Name)
	assert.Equal(t, model.Coordinate{Lon: -2.2913, Lat: 53.4631}, corrections[556].Coordinate())
	assert.Equal(t, model.Coordinate{Lon: -0.1086, Lat: 51.5549}, corrections[494].Coordinate())
}

func TestLoadManualCorrections_EmptyPath(t *testing.T) {
	corrections, err := correction.LoadManualCorrections("")
	require.NoError(t, err)
	assert.Empty(t, corrections)
}

func TestLoadManualCorrections_InvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not-a-number": {}}`), 0o600))

	_, err := correction.LoadManualCorrections(path)
	assert.Error(t, err)
}
