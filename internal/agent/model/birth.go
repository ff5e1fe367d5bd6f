package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04"
	TimeLayoutSeconds = "15:04:05"
)

// RequiredBirthFields are the fields a BirthDetails record cannot exist without.
var RequiredBirthFields = []string{"name", "date_of_birth", "time_of_birth", "place_of_birth"}

// BirthDetails is only ever stored complete; see Validate.
type BirthDetails struct {
	Name         string   `json:"name" validate:"required"`
	DateOfBirth  string   `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	TimeOfBirth  string   `json:"time_of_birth" validate:"required,clock"`
	PlaceOfBirth string   `json:"place_of_birth" validate:"required"`
	Goals        []string `json:"goals,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Timezone     string   `json:"timezone,omitempty"`
	TodayDate    string   `json:"today_date,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the json tag name and custom rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, ok := ParseClock(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// ParseClock accepts HH:MM and HH:MM:SS.
func ParseClock(v string) (time.Time, bool) {
	for _, layout := range []string{TimeLayout, TimeLayoutSeconds} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks required fields, formats and coordinate ranges.
func (b BirthDetails) Validate() error {
	return Validator().Struct(b)
}

// InvalidFields lists the json names of fields that fail validation.
func (b BirthDetails) InvalidFields() []string {
	err := b.Validate()
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// HasCoordinates reports whether both coordinates are set.
func (b BirthDetails) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// WithLocation returns a copy enriched with resolved coordinates and timezone.
func (b BirthDetails) WithLocation(lat, lon float64, timezone string) BirthDetails {
	b.Latitude = &lat
	b.Longitude = &lon
	b.Timezone = timezone
	b.Goals = append([]string(nil), b.Goals...)
	return b
}

// BirthDateTime combines date and time as a naive wall-clock value (UTC location, no offset applied).
func (b BirthDetails) BirthDateTime() (time.Time, error) {
	d, err := time.Parse(DateLayout, b.DateOfBirth)
	if err != nil {
		return time.Time{}, err
	}
	c, ok := ParseClock(b.TimeOfBirth)
	if !ok {
		return time.Time{}, errors.New("time_of_birth must be HH:MM or HH:MM:SS")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}
