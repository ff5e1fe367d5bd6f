package model

import (
	"context"
	"time"
)

// GeoResult is what a geocoding lookup returns. Failures are reported in-band
// (Success=false) so a tool-calling model can read them.
type GeoResult struct {
	Success    bool    `json:"success"`
	PlaceName  string  `json:"place_name,omitempty"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Timezone   string  `json:"timezone,omitempty"`
	Error      string  `json:"error,omitempty"`
	RetryAfter int     `json:"retry_after,omitempty"`
}

// GeocodeFailure builds the failure payload surfaced to the model.
func GeocodeFailure(msg string) GeoResult {
	return GeoResult{Success: false, Error: msg, RetryAfter: 2}
}

// GeocodeCache stores successful lookups.
type GeocodeCache interface {
	Get(ctx context.Context, key string) (*GeoResult, bool, error)
	Set(ctx context.Context, key string, res GeoResult, ttl time.Duration) error
}

// Geocoder resolves places. Failures come back as GeocodeFailure payloads, never as errors.
type Geocoder interface {
	Forward(ctx context.Context, address string) GeoResult
	Reverse(ctx context.Context, lat, lon float64) GeoResult
}
