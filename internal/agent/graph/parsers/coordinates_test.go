package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInlineCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "labelled", text: "born at lat 19.0760, lon 72.8777", lat: 19.0760, lon: 72.8777},
		{name: "long labels", text: "Coordinates: Latitude 12.97 Longitude 77.59", lat: 12.97, lon: 77.59},
		{name: "hemispheres", text: "latitude: 33.86S, longitude: 151.2E", lat: -33.86, lon: 151.2},
		{name: "west", text: "lat=40.71 long=74.00W", lat: 40.71, lon: -74.0},
		{name: "pair", text: "my coordinates: (28.6139, 77.2090)", lat: 28.6139, lon: 77.2090},
		{name: "latitude out of range", text: "lat 95.0, lon 10", wantErr: true},
		{name: "longitude out of range", text: "lat 10, lon -181.5", wantErr: true},
		{name: "none", text: "born in Mumbai", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, ok := ParseInlineCoordinates(tt.text)
			if tt.wantErr {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.InDelta(t, tt.lat, lat, 1e-9)
			assert.InDelta(t, tt.lon, lon, 1e-9)
		})
	}
}

func TestBalancedObject(t *testing.T) {
	text := `x {"a": "}{", "b": {"c": "\"}"}} tail`
	raw, ok := balancedObject(text, 2)
	assert.True(t, ok)
	assert.Equal(t, `{"a": "}{", "b": {"c": "\"}"}}`, raw)

	_, ok = balancedObject(`{"a": {`, 0)
	assert.False(t, ok)
	_, ok = balancedObject("abc", 0)
	assert.False(t, ok)
}
