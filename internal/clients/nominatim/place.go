package nominatim

import (
	"strconv"

	"github.com/astroguru-core/server/internal/agent/model"
)

// place is one Nominatim search or reverse result.
type place struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func (p place) result(query string) model.GeoResult {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)
	name := p.DisplayName
	if name == "" {
		name = query
	}
	return model.GeoResult{
		Success:   true,
		PlaceName: name,
		City:      firstOf(p.Address, "city", "town", "village", "municipality"),
		State:     firstOf(p.Address, "state", "region"),
		Country:   p.Address["country"],
		Latitude:  lat,
		Longitude: lon,
		Timezone:  timezoneFor(lat, lon),
	}
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

type zoneBox struct {
	zone           string
	minLat, maxLat float64
	minLon, maxLon float64
}

// zoneBoxes is a coarse region table, checked in order. The stored timezone is
// overridden by the civil reference anyway; this only informs the model.
var zoneBoxes = []zoneBox{
	{"Asia/Kolkata", 6, 37, 68, 97},
	{"America/New_York", 24, 50, -85, -66},
	{"America/Chicago", 24, 50, -102, -85},
	{"America/Denver", 24, 50, -115, -102},
	{"America/Los_Angeles", 24, 50, -125, -115},
	{"Europe/London", 49, 61, -8, 2},
	{"Europe/Berlin", 35, 55, 5, 25},
	{"Australia/Sydney", -45, -10, 113, 154},
}

func timezoneFor(lat, lon float64) string {
	for _, b := range zoneBoxes {
		if lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon {
			return b.zone
		}
	}
	return "UTC"
}
