package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBirthDetailsMarker(t *testing.T) {
	text := `Thank you Asha! I have everything I need.
{
  "birth_details": {
    "name": "Asha {Rao}",
    "date_of_birth": "1990-05-12",
    "time_of_birth": "06:30",
    "place_of_birth": "Mumbai, Maharashtra, India",
    "goals": ["career", "marriage"],
    "latitude": null,
    "longitude": null,
    "timezone": null
  }
}
Let me look up your birthplace next.`

	bd, strategy := ExtractBirthDetails(text)
	require.NotNil(t, bd)
	assert.Equal(t, StrategyMarker, strategy)
	assert.Equal(t, "Asha {Rao}", bd.Name)
	assert.Equal(t, "1990-05-12", bd.DateOfBirth)
	assert.Equal(t, "06:30", bd.TimeOfBirth)
	assert.Equal(t, "Mumbai, Maharashtra, India", bd.PlaceOfBirth)
	assert.Equal(t, []string{"career", "marriage"}, bd.Goals)
	assert.Nil(t, bd.Latitude)
	assert.Nil(t, bd.Longitude)
	assert.Empty(t, bd.InvalidFields())
}

func TestExtractBirthDetailsMarkerWithEscapes(t *testing.T) {
	text := `{\n  \"birth_details\": {\"name\": \"Ravi\", \"date_of_birth\": \"1985-01-02\", \"time_of_birth\": \"23:15\", \"place_of_birth\": \"Pune, India\"}\n}`

	bd, _ := ExtractBirthDetails(text)
	require.NotNil(t, bd)
	assert.Equal(t, "Ravi", bd.Name)
	assert.Equal(t, "23:15", bd.TimeOfBirth)
}

func TestExtractBirthDetailsFencedBlock(t *testing.T) {
	// Single-quoted key defeats the marker search; the fenced block still decodes.
	text := "Here you go:\n```json\n{\"birth_details\":{\"name\":\"Meera\",\"date_of_birth\":\"12/05/1990\",\"time_of_birth\":\"6:30 PM\",\"place_of_birth\":\"Chennai, India\",\"goals\":\"health, finance\"}}\n```\nsee 'birth_details' above"

	bd, strategy := ExtractBirthDetails(text)
	require.NotNil(t, bd)
	assert.Contains(t, []Strategy{StrategyMarker, StrategyFenced}, strategy)
	assert.Equal(t, "1990-05-12", bd.DateOfBirth)
	assert.Equal(t, "18:30", bd.TimeOfBirth)
	assert.Equal(t, []string{"health", "finance"}, bd.Goals)
}

func TestExtractBirthDetailsScan(t *testing.T) {
	// The marker object is malformed, a later object is fine.
	text := `{"birth_details": {"name": "broken",} } and then {"note": 1} {"birth_details": {"name": "Kiran", "date_of_birth": "2001-11-30", "time_of_birth": "04:05:06", "place_of_birth": "Delhi"}}`

	bd, strategy := ExtractBirthDetails(text)
	require.NotNil(t, bd)
	assert.Equal(t, StrategyScan, strategy)
	assert.Equal(t, "Kiran", bd.Name)
	assert.Equal(t, "04:05:06", bd.TimeOfBirth)
}

func TestExtractBirthDetailsNone(t *testing.T) {
	for _, text := range []string{
		"",
		"Hello! Could you share your date of birth?",
		`{"name": "no marker"}`,
		`{"birth_details": null}`,
		`{"birth_details": {"name": "unterminated"`,
	} {
		bd, strategy := ExtractBirthDetails(text)
		assert.Nil(t, bd, text)
		assert.Empty(t, strategy, text)
	}
}

func TestExtractBirthDetailsPartialRecordIsReturnedUnvalidated(t *testing.T) {
	bd, _ := ExtractBirthDetails(`{"birth_details": {"name": "Asha", "date_of_birth": "1990-05-12"}}`)
	require.NotNil(t, bd)
	assert.ElementsMatch(t, []string{"time_of_birth", "place_of_birth"}, bd.InvalidFields())
}

func TestExtractBirthDetailsCoordinates(t *testing.T) {
	bd, _ := ExtractBirthDetails(`{"birth_details": {"name": "A", "date_of_birth": "1990-05-12", "time_of_birth": "06:30", "place_of_birth": "X", "latitude": "19.07", "longitude": 72.87}}`)
	require.NotNil(t, bd)
	require.True(t, bd.HasCoordinates())
	assert.InDelta(t, 19.07, *bd.Latitude, 1e-9)
	assert.InDelta(t, 72.87, *bd.Longitude, 1e-9)

	bd, _ = ExtractBirthDetails(`{"birth_details": {"name": "A", "latitude": 123, "longitude": 72.87}}`)
	require.NotNil(t, bd)
	assert.False(t, bd.HasCoordinates(), "out of range latitude drops the pair")
	assert.Nil(t, bd.Longitude)
}

func TestStripBirthDetails(t *testing.T) {
	const obj = `{"birth_details": {"name": "Asha", "date_of_birth": "1990-05-12"}}`
	tests := []struct {
		name string
		text string
		want string
	}{
		{"json fence", "Thank you, Asha!\n```json\n" + obj + "\n```", "Thank you, Asha!"},
		{"plain fence", "Thank you, Asha!\n```\n" + obj + "\n```\nAnything else?", "Thank you, Asha!\n\nAnything else?"},
		{"inline object", "Thank you, Asha! " + obj + " What is your time of birth?", "Thank you, Asha!\n\nWhat is your time of birth?"},
		{"payload only", obj, ""},
		{"no payload", "  Could you share your date of birth? ", "Could you share your date of birth?"},
		{"other json kept", `Use {"format": "YYYY-MM-DD"} for dates.`, `Use {"format": "YYYY-MM-DD"} for dates.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBirthDetails(tt.text))
		})
	}
}

func TestNormalizeDateAndTime(t *testing.T) {
	dates := map[string]string{
		"1990-05-12":   "1990-05-12",
		" 1990/05/12 ": "1990-05-12",
		"12-05-1990":   "1990-05-12",
		"12 May 1990":  "1990-05-12",
		"May 12, 1990": "1990-05-12",
		"sometime":     "sometime",
	}
	for in, want := range dates {
		assert.Equal(t, want, NormalizeDate(in), in)
	}

	times := map[string]string{
		"06:30":    "06:30",
		"6:30 AM":  "06:30",
		"6:30pm":   "18:30",
		"23:15:09": "23:15:09",
		"18.45":    "18:45",
		"dawn":     "dawn",
	}
	for in, want := range times {
		assert.Equal(t, want, NormalizeTime(in), in)
	}
}
