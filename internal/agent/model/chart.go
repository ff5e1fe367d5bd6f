package model

import (
	"context"
	"fmt"
	"time"
)

// ClassicalBodies are the nine bodies every chart reports.
var ClassicalBodies = []string{"Sun", "Moon", "Mars", "Mercury", "Jupiter", "Venus", "Saturn", "Rahu", "Ketu"}

// DashaSequence is the Vimshottari period order.
var DashaSequence = []string{"Ketu", "Venus", "Sun", "Moon", "Mars", "Rahu", "Jupiter", "Saturn", "Mercury"}

// DefaultDivisionalCharts are requested when the caller does not name any.
var DefaultDivisionalCharts = []string{"d1", "d2", "d3", "d4", "d7", "d9", "d10", "d12"}

// ChartRequest is the input of the chart engine. BirthDateTime is a naive wall-clock
// value; UTCOffsetHours says how to interpret it.
type ChartRequest struct {
	Name             string    `json:"name"`
	BirthDateTime    time.Time `json:"-"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	UTCOffsetHours   float64   `json:"utc_offset"`
	LocationLabel    string    `json:"location"`
	YearsAhead       int       `json:"years_ahead"`
	DivisionalCharts []string  `json:"divisional_charts"`
}

// NewChartRequest builds the engine input from complete, located birth details.
func NewChartRequest(b BirthDetails, civil CivilTime) (ChartRequest, error) {
	if !b.HasCoordinates() {
		return ChartRequest{}, fmt.Errorf("birth details have no coordinates")
	}
	dt, err := b.BirthDateTime()
	if err != nil {
		return ChartRequest{}, fmt.Errorf("parse birth date/time %q %q: %w", b.DateOfBirth, b.TimeOfBirth, err)
	}
	return ChartRequest{
		Name:             b.Name,
		BirthDateTime:    dt,
		Latitude:         *b.Latitude,
		Longitude:        *b.Longitude,
		UTCOffsetHours:   civil.OffsetHours,
		LocationLabel:    b.PlaceOfBirth,
		YearsAhead:       10,
		DivisionalCharts: DefaultDivisionalCharts,
	}, nil
}

type Ascendant struct {
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
	Lord   string  `json:"lord"`
}

type BodyPosition struct {
	Body       string             `json:"body"`
	Sign       string             `json:"sign"`
	House      int                `json:"house"`
	Degree     float64            `json:"degree"`
	Nakshatra  string             `json:"nakshatra"`
	Pada       int                `json:"pada"`
	Retrograde bool               `json:"retrograde,omitempty"`
	Strength   map[string]float64 `json:"strength,omitempty"`
}

type House struct {
	Number    int      `json:"number"`
	Sign      string   `json:"sign"`
	Lord      string   `json:"lord"`
	Occupants []string `json:"occupants"`
}

type DashaPeriod struct {
	Planet     string        `json:"planet"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Antardasha []DashaPeriod `json:"antardasha,omitempty"`
}

type DashaSchedule struct {
	Current  *DashaPeriod  `json:"current,omitempty"`
	Upcoming []DashaPeriod `json:"upcoming,omitempty"`
}

type DivisionalChart struct {
	Ascendant  string            `json:"ascendant"`
	Placements map[string]string `json:"placements"`
}

// Chart is the structured output of the chart engine.
type Chart struct {
	Ascendant  Ascendant                  `json:"ascendant"`
	Bodies     []BodyPosition             `json:"bodies"`
	Houses     []House                    `json:"houses"`
	Dasha      DashaSchedule              `json:"dasha"`
	Divisional map[string]DivisionalChart `json:"divisional_charts,omitempty"`
	Ayanamsa   float64                    `json:"ayanamsa,omitempty"`
}

// Incomplete lists the parts of the chart the engine failed to report.
func (c *Chart) Incomplete() []string {
	if c == nil {
		return []string{"chart"}
	}
	var missing []string
	if c.Ascendant.Sign == "" {
		missing = append(missing, "ascendant")
	}
	seen := make(map[string]bool, len(c.Bodies))
	for _, b := range c.Bodies {
		seen[b.Body] = true
	}
	for _, body := range ClassicalBodies {
		if !seen[body] {
			missing = append(missing, body)
		}
	}
	if len(c.Houses) != 12 {
		missing = append(missing, fmt.Sprintf("houses(%d/12)", len(c.Houses)))
	}
	return missing
}

// ChartEngine computes a chart from located birth data.
type ChartEngine interface {
	Compute(ctx context.Context, req ChartRequest) (*Chart, error)
}
