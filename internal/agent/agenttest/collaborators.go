package agenttest

import (
	"context"
	"strings"
	"sync"

	"github.com/astroguru-core/server/internal/agent/model"
)

// ChartEngine returns a fixed chart or error.
type ChartEngine struct {
	mu       sync.Mutex
	Chart    *model.Chart
	Err      error
	requests []model.ChartRequest
}

var _ model.ChartEngine = (*ChartEngine)(nil)

func (e *ChartEngine) Compute(ctx context.Context, req model.ChartRequest) (*model.Chart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Chart, nil
}

func (e *ChartEngine) Requests() []model.ChartRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.ChartRequest(nil), e.requests...)
}

// Geocoder answers from a table keyed by lower-cased address.
type Geocoder struct {
	mu       sync.Mutex
	Places   map[string]model.GeoResult
	Reversed model.GeoResult
	lookups  []string
}

var _ model.Geocoder = (*Geocoder)(nil)

func (g *Geocoder) Forward(_ context.Context, address string) model.GeoResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, address)
	if res, ok := g.Places[strings.ToLower(strings.TrimSpace(address))]; ok {
		return res
	}
	return model.GeocodeFailure("no results found for " + address)
}

func (g *Geocoder) Reverse(_ context.Context, lat, lon float64) model.GeoResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, "reverse")
	if !g.Reversed.Success {
		return model.GeocodeFailure("reverse lookup unavailable")
	}
	res := g.Reversed
	res.Latitude, res.Longitude = lat, lon
	return res
}

func (g *Geocoder) Lookups() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.lookups...)
}

// Mumbai is the forward-geocode result used across stage tests.
var Mumbai = model.GeoResult{
	Success:   true,
	PlaceName: "Mumbai, Maharashtra, India",
	City:      "Mumbai",
	State:     "Maharashtra",
	Country:   "India",
	Latitude:  19.0760,
	Longitude: 72.8777,
	Timezone:  "Asia/Kolkata",
}
