package agenttest

import (
	"fmt"

	"github.com/astroguru-core/server/internal/agent/model"
)

var signs = []string{"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo", "Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces"}

// SampleChart is a complete chart: ascendant, nine bodies, twelve houses.
func SampleChart() *model.Chart {
	c := &model.Chart{
		Ascendant: model.Ascendant{Sign: "Taurus", Degree: 12.4, Lord: "Venus"},
		Dasha: model.DashaSchedule{
			Current:  &model.DashaPeriod{Planet: "Jupiter", Start: "2019-03-01", End: "2035-03-01"},
			Upcoming: []model.DashaPeriod{{Planet: "Saturn", Start: "2035-03-01", End: "2054-03-01"}},
		},
		Divisional: map[string]model.DivisionalChart{
			"d9": {Ascendant: "Leo", Placements: map[string]string{"Sun": "Aries"}},
		},
		Ayanamsa: 23.7,
	}
	for i, body := range model.ClassicalBodies {
		c.Bodies = append(c.Bodies, model.BodyPosition{
			Body:      body,
			Sign:      signs[i%12],
			House:     i + 1,
			Degree:    float64(i) * 3.3,
			Nakshatra: fmt.Sprintf("Nakshatra-%d", i+1),
			Pada:      i%4 + 1,
		})
	}
	for i := 0; i < 12; i++ {
		c.Houses = append(c.Houses, model.House{Number: i + 1, Sign: signs[(i+1)%12], Lord: "Venus"})
	}
	return c
}

// BirthDetails returns a complete, unlocated record.
func BirthDetails() model.BirthDetails {
	return model.BirthDetails{
		Name:         "Asha",
		DateOfBirth:  "1990-05-12",
		TimeOfBirth:  "06:30",
		PlaceOfBirth: "Mumbai, India",
		Goals:        []string{"career"},
		TodayDate:    "2026-10-16",
	}
}

// CollectorReply is a detail-collector answer carrying the birth-details payload.
func CollectorReply(b model.BirthDetails) string {
	return fmt.Sprintf("Thank you, %s! I have everything I need.\n\n"+
		"```json\n{\"birth_details\": {\"name\": %q, \"date_of_birth\": %q, \"time_of_birth\": %q, \"place_of_birth\": %q, \"goals\": [\"career\"]}}\n```",
		b.Name, b.Name, b.DateOfBirth, b.TimeOfBirth, b.PlaceOfBirth)
}

// LocationReply is a final location-model answer for g.
func LocationReply(g model.GeoResult) string {
	return fmt.Sprintf("{\"latitude\": %v, \"longitude\": %v, \"timezone\": %q, \"place_name\": %q, \"city\": %q, \"state\": %q, \"country\": %q}",
		g.Latitude, g.Longitude, g.Timezone, g.PlaceName, g.City, g.State, g.Country)
}
