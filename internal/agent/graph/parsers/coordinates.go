package parsers

import (
	"regexp"
	"strings"
)

var (
	// "lat 19.07, lon 72.87", "Latitude: 19.07N Longitude: 72.87E"
	labelledCoordsRe = regexp.MustCompile(`(?i)\blat(?:itude)?\b\s*[:=]?\s*([+-]?\d{1,3}(?:\.\d+)?)\s*°?\s*([NS])?[\s,;/]+(?:and\s+)?\blon(?:g|gitude)?\b\s*[:=]?\s*([+-]?\d{1,3}(?:\.\d+)?)\s*°?\s*([EW])?`)
	// "coordinates: 19.0760, 72.8777"
	pairCoordsRe = regexp.MustCompile(`(?i)\bcoord(?:inate)?s?\b\s*[:=]?\s*\(?\s*([+-]?\d{1,3}(?:\.\d+)?)\s*,\s*([+-]?\d{1,3}(?:\.\d+)?)`)
)

// ParseInlineCoordinates finds a latitude/longitude pair written in free text.
// Out-of-range values are rejected.
func ParseInlineCoordinates(text string) (lat, lon float64, ok bool) {
	if m := labelledCoordsRe.FindStringSubmatch(text); m != nil {
		return validCoords(m[1], m[2], m[3], m[4])
	}
	if m := pairCoordsRe.FindStringSubmatch(text); m != nil {
		return validCoords(m[1], "", m[2], "")
	}
	return 0, 0, false
}

func validCoords(latS, ns, lonS, ew string) (float64, float64, bool) {
	lat, err := parseFloatInRange(latS, "latitude", -90, 90)
	if err != nil {
		return 0, 0, false
	}
	lon, err := parseFloatInRange(lonS, "longitude", -180, 180)
	if err != nil {
		return 0, 0, false
	}
	if strings.EqualFold(ns, "S") && lat > 0 {
		lat = -lat
	}
	if strings.EqualFold(ew, "W") && lon > 0 {
		lon = -lon
	}
	return lat, lon, true
}
