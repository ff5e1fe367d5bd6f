package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBirthDetailsValidate(t *testing.T) {
	require.NoError(t, completeDetails().Validate())

	withSeconds := completeDetails()
	withSeconds.TimeOfBirth = "06:30:15"
	assert.NoError(t, withSeconds.Validate())

	assert.Empty(t, completeDetails().InvalidFields())
}

func TestBirthDetailsInvalidFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BirthDetails)
		want   []string
	}{
		{"missing name", func(b *BirthDetails) { b.Name = "" }, []string{"name"}},
		{"missing place", func(b *BirthDetails) { b.PlaceOfBirth = "" }, []string{"place_of_birth"}},
		{"bad date", func(b *BirthDetails) { b.DateOfBirth = "12/05/1990" }, []string{"date_of_birth"}},
		{"bad time", func(b *BirthDetails) { b.TimeOfBirth = "morning" }, []string{"time_of_birth"}},
		{"latitude out of range", func(b *BirthDetails) { v := 91.0; b.Latitude = &v }, []string{"latitude"}},
		{"longitude out of range", func(b *BirthDetails) { v := -180.5; b.Longitude = &v }, []string{"longitude"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bd := completeDetails()
			tc.mutate(&bd)
			assert.Equal(t, tc.want, bd.InvalidFields())
		})
	}

	assert.ElementsMatch(t, RequiredBirthFields, BirthDetails{}.InvalidFields())
}

func TestWithLocationCopies(t *testing.T) {
	orig := completeDetails()
	located := orig.WithLocation(19.07, 72.87, "Asia/Kolkata")

	require.True(t, located.HasCoordinates())
	assert.False(t, orig.HasCoordinates())
	located.Goals[0] = "health"
	assert.Equal(t, "career", orig.Goals[0])
}

func TestBirthDateTimeIsNaive(t *testing.T) {
	dt, err := completeDetails().BirthDateTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 5, 12, 6, 30, 0, 0, time.UTC), dt)
}

func TestCivilTimeToday(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", DefaultCivilTime.Today(now))

	fixed := CivilTime{Zone: "Nowhere/Invalid", OffsetHours: 5.5}
	_, offset := now.In(fixed.Location()).Zone()
	assert.Equal(t, 19800, offset)
}
