package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroguru-core/server/internal/agent/model"
	"github.com/astroguru-core/server/internal/agent/repo"
)

const mumbaiSearch = `[{
	"display_name": "Mumbai, Mumbai Suburban, Maharashtra, India",
	"lat": "19.0760", "lon": "72.8777",
	"address": {"city": "Mumbai", "state": "Maharashtra", "country": "India"}
}]`

func newTestClient(t *testing.T, h http.HandlerFunc, cache model.GeocodeCache) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(model.GeocoderConfig{
		BaseURL:    srv.URL,
		UserAgent:  "astroguru-test/1.0",
		RetryDelay: 2 * time.Second,
		Timeout:    5 * time.Second,
		CacheTTL:   24 * time.Hour,
	}, cache)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestForward(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Mumbai, India", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "astroguru-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(mumbaiSearch))
	}, nil)

	res := c.Forward(context.Background(), "  Mumbai, India ")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Mumbai", res.City)
	assert.Equal(t, "Maharashtra", res.State)
	assert.Equal(t, "India", res.Country)
	assert.InDelta(t, 19.0760, res.Latitude, 1e-9)
	assert.InDelta(t, 72.8777, res.Longitude, 1e-9)
	assert.Equal(t, "Asia/Kolkata", res.Timezone)
}

func TestForwardAddressFallbacks(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"display_name": "Hampi", "lat": "15.335", "lon": "76.46",
			"address": {"village": "Hampi", "region": "Karnataka", "country": "India"}}]`))
	}, nil)

	res := c.Forward(context.Background(), "Hampi")
	require.True(t, res.Success)
	assert.Equal(t, "Hampi", res.City)
	assert.Equal(t, "Karnataka", res.State)
}

func TestForwardNoResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	res := c.Forward(context.Background(), "Atlantis")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Atlantis")

	assert.False(t, c.Forward(context.Background(), "   ").Success)
}

func TestRetriesOnceWhenRateLimited(t *testing.T) {
	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(mumbaiSearch))
	}, nil)

	res := c.Forward(context.Background(), "Mumbai")
	assert.True(t, res.Success)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestRateLimitedTwiceReturnsRetryPayload(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(509)
	}, nil)

	res := c.Forward(context.Background(), "Mumbai")
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.RetryAfter)
	assert.Contains(t, res.Error, "509")
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}, nil)

	res := c.Forward(context.Background(), "Mumbai")
	assert.False(t, res.Success)
	assert.Zero(t, res.RetryAfter)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSuccessfulLookupsAreCached(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(mumbaiSearch))
	}, repo.NewMemoryGeocodeCache())

	first := c.Forward(context.Background(), "Mumbai, India")
	second := c.Forward(context.Background(), "mumbai, india")
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFailuresAreNotCached(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}, repo.NewMemoryGeocodeCache())

	c.Forward(context.Background(), "Atlantis")
	c.Forward(context.Background(), "Atlantis")
	assert.EqualValues(t, 2, calls.Load())
}

func TestConcurrentLookupsShareOneRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(mumbaiSearch))
	}, nil)

	var wg sync.WaitGroup
	results := make([]model.GeoResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Forward(context.Background(), "Mumbai")
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(mumbaiSearch))
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan model.GeoResult, 1)
	go func() { first <- c.Forward(ctx, "Mumbai") }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan model.GeoResult, 1)
	go func() { second <- c.Forward(context.Background(), "Mumbai") }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	res := <-first
	assert.False(t, res.Success)

	close(release)
	res = <-second
	assert.True(t, res.Success, res.Error)
	assert.EqualValues(t, 1, calls.Load())
}

func TestReverse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "51.5072", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"display_name": "London, Greater London, England, United Kingdom",
			"lat": "51.50", "lon": "-0.12",
			"address": {"city": "London", "state": "England", "country": "United Kingdom"}}`))
	}, nil)

	res := c.Reverse(context.Background(), 51.5072, -0.1276)
	require.True(t, res.Success)
	assert.Equal(t, "London", res.City)
	assert.InDelta(t, 51.5072, res.Latitude, 1e-9)
	assert.Equal(t, "Europe/London", res.Timezone)
}

func TestReverseRejectsOutOfRange(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, nil)
	assert.False(t, c.Reverse(context.Background(), 91, 0).Success)
	assert.False(t, c.Reverse(context.Background(), 0, -181).Success)
}

func TestReverseNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}, nil)
	assert.False(t, c.Reverse(context.Background(), 0, 0).Success)
}

func TestTimezoneFor(t *testing.T) {
	assert.Equal(t, "Asia/Kolkata", timezoneFor(28.61, 77.21))
	assert.Equal(t, "America/New_York", timezoneFor(40.71, -74.0))
	assert.Equal(t, "Australia/Sydney", timezoneFor(-33.87, 151.21))
	assert.Equal(t, "UTC", timezoneFor(-1.29, 36.82))
}
