package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLocation(t *testing.T) {
	loc, err := ExtractLocation("Sure.\n```json\n" + `{"place_name": "Mumbai, Maharashtra, India", "city": "Mumbai", "state": "Maharashtra", "country": "India", "latitude": 19.0760, "longitude": 72.8777, "timezone": "Asia/Kolkata"}` + "\n```")
	require.NoError(t, err)
	assert.InDelta(t, 19.0760, loc.Latitude, 1e-9)
	assert.InDelta(t, 72.8777, loc.Longitude, 1e-9)
	assert.Equal(t, "Mumbai", loc.City)
	assert.Equal(t, "Asia/Kolkata", loc.ReportedTimezone)
	assert.Empty(t, loc.Timezone)
}

func TestExtractLocationStringCoordinates(t *testing.T) {
	loc, err := ExtractLocation(`{"latitude": "-33.8688", "longitude": "151.2093", "timezone": "Australia/Sydney"}`)
	require.NoError(t, err)
	assert.InDelta(t, -33.8688, loc.Latitude, 1e-9)
	assert.InDelta(t, 151.2093, loc.Longitude, 1e-9)
}

func TestExtractLocationFailures(t *testing.T) {
	_, err := ExtractLocation("I could not find that place.")
	assert.ErrorIs(t, err, ErrNoLocationObject)

	_, err = ExtractLocation(`{"place_name": "Atlantis", "latitude": 10}`)
	assert.ErrorIs(t, err, ErrLocationFields)

	_, err = ExtractLocation(`{"latitude": 91, "longitude": 10}`)
	assert.ErrorContains(t, err, "latitude out of range")

	_, err = ExtractLocation(`{"latitude": 45, "longitude": -180.01}`)
	assert.ErrorContains(t, err, "longitude out of range")

	_, err = ExtractLocation(`{"latitude": true, "longitude": 1}`)
	assert.Error(t, err)
}
