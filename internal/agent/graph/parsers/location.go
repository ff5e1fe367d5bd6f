package parsers

import (
	"errors"
	"fmt"

	"github.com/astroguru-core/server/internal/agent/model"
)

var (
	ErrNoLocationObject = errors.New("no location object in response")
	ErrLocationFields   = errors.New("location object is missing coordinates")
)

var locationKeys = []string{"latitude", "longitude", "place_name", "city", "country", "timezone"}

// ExtractLocation reads the first object in text that carries any location key
// and validates its coordinates. The timezone is reported as given; the caller
// decides which zone to store.
func ExtractLocation(text string) (model.LocationData, error) {
	if len(text) > maxContentLen {
		text = text[:maxContentLen]
	}
	m, ok := scanObjects(text, func(m map[string]any) bool {
		for _, k := range locationKeys {
			if _, ok := m[k]; ok {
				return true
			}
		}
		return false
	})
	if !ok {
		return model.LocationData{}, fmt.Errorf("%w: %q", ErrNoLocationObject, safeSnippet(text))
	}

	var missing []string
	lat, latOK, err := numberField(m, "latitude", -90, 90)
	if err != nil {
		return model.LocationData{}, fmt.Errorf("invalid location: %w", err)
	}
	if !latOK {
		missing = append(missing, "latitude")
	}
	lon, lonOK, err := numberField(m, "longitude", -180, 180)
	if err != nil {
		return model.LocationData{}, fmt.Errorf("invalid location: %w", err)
	}
	if !lonOK {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return model.LocationData{}, fmt.Errorf("%w: %v", ErrLocationFields, missing)
	}

	return model.LocationData{
		Latitude:         lat,
		Longitude:        lon,
		ReportedTimezone: stringField(m, "timezone"),
		PlaceName:        stringField(m, "place_name"),
		City:             stringField(m, "city"),
		State:            stringField(m, "state"),
		Country:          stringField(m, "country"),
	}, nil
}
