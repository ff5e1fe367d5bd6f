package model

import "time"

// CivilTime is the single civil-time reference every chart is computed in.
type CivilTime struct {
	Zone        string  `envconfig:"CIVIL_TIME_ZONE" default:"Asia/Kolkata"`
	OffsetHours float64 `envconfig:"CIVIL_TIME_OFFSET_HOURS" default:"5.5"`
}

// DefaultCivilTime is Indian Standard Time.
var DefaultCivilTime = CivilTime{Zone: "Asia/Kolkata", OffsetHours: 5.5}

// Location resolves the zone, falling back to a fixed offset when tzdata is unavailable.
func (c CivilTime) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Zone); err == nil {
		return loc
	}
	return time.FixedZone(c.Zone, int(c.OffsetHours*3600))
}

// Today formats now as a date in the civil zone.
func (c CivilTime) Today(now time.Time) string {
	return now.In(c.Location()).Format(DateLayout)
}
