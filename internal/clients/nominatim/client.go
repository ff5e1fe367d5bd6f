// Package nominatim geocodes birth places through an OpenStreetMap Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

const service = "nominatim"

var tracer = otel.Tracer("github.com/astroguru-core/server/internal/clients/nominatim")

// Client implements model.Geocoder. Requests are spaced by the configured
// minimum interval, identical concurrent lookups share one request and
// successful results are cached.
type Client struct {
	http       *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retryDelay time.Duration
	timeout    time.Duration
	cache      model.GeocodeCache
	cacheTTL   time.Duration
	group      singleflight.Group
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ model.Geocoder = (*Client)(nil)

// New builds a client. cache may be nil.
func New(cfg model.GeocoderConfig, cache model.GeocodeCache) *Client {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: cfg.RetryDelay,
		timeout:    sharedTimeout(cfg),
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		sleep:      sleepCtx,
	}
}

// Forward resolves a free-text address.
func (c *Client) Forward(ctx context.Context, address string) model.GeoResult {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.GeocodeFailure("address is empty")
	}
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")

	key := "forward:" + strings.ToLower(address)
	return c.lookup(ctx, key, "/search", q, func(body []byte) model.GeoResult {
		var places []place
		if err := json.Unmarshal(body, &places); err != nil {
			return model.GeocodeFailure(fmt.Sprintf("undecodable geocoding response: %v", err))
		}
		if len(places) == 0 {
			return model.GeocodeFailure("No location found for: " + address)
		}
		return places[0].result(address)
	})
}

// Reverse names the place at the given coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) model.GeoResult {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.GeocodeFailure(fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	key := fmt.Sprintf("reverse:%.5f,%.5f", lat, lon)
	return c.lookup(ctx, key, "/reverse", q, func(body []byte) model.GeoResult {
		var p place
		if err := json.Unmarshal(body, &p); err != nil {
			return model.GeocodeFailure(fmt.Sprintf("undecodable geocoding response: %v", err))
		}
		if p.Error != "" || (p.DisplayName == "" && len(p.Address) == 0) {
			return model.GeocodeFailure("No location found for coordinates")
		}
		res := p.result("")
		res.Latitude, res.Longitude = lat, lon
		res.Timezone = timezoneFor(lat, lon)
		return res
	})
}

func (c *Client) lookup(ctx context.Context, key, path string, q url.Values, decode func([]byte) model.GeoResult) model.GeoResult {
	ctx, span := tracer.Start(ctx, "geocode"+strings.ReplaceAll(path, "/", "."), trace.WithAttributes(
		attribute.String("geocode.key", key),
	))
	defer span.End()

	if res, ok := c.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("geocode.cached", true))
		return res
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// other callers may be waiting on this request
		fctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}
		body, err := c.get(fctx, path, q)
		if err != nil {
			return failureFor(err), nil
		}
		res := decode(body)
		if res.Success {
			c.store(fctx, key, res)
		}
		return res, nil
	})

	var res model.GeoResult
	var shared bool
	select {
	case r := <-ch:
		res, shared = r.Val.(model.GeoResult), r.Shared
	case <-ctx.Done():
		res = failureFor(ctx.Err())
	}
	span.SetAttributes(attribute.Bool("geocode.shared", shared), attribute.Bool("geocode.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		logx.Ctx(ctx).Warn().Str("key", key).Str("error", res.Error).Msg("geocoding failed")
	}
	return res
}

func (c *Client) cached(ctx context.Context, key string) (model.GeoResult, bool) {
	if c.cache == nil {
		return model.GeoResult{}, false
	}
	res, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
		return model.GeoResult{}, false
	}
	if !ok || res == nil {
		return model.GeoResult{}, false
	}
	return *res, true
}

func (c *Client) store(ctx context.Context, key string, res model.GeoResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, res, c.cacheTTL); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
}

// get performs one rate-limited request and retries once after a rate-limit answer.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	body, status, err := c.do(ctx, path, q)
	if err == nil && isRateLimited(status) {
		logx.Ctx(ctx).Warn().Int("status", status).Dur("retry_in", c.retryDelay).Msg("rate limited by geocoder, retrying once")
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return nil, err
		}
		body, status, err = c.do(ctx, path, q)
	}
	if err != nil {
		return nil, errx.WrapUpstream(service, 0, err)
	}
	if status != http.StatusOK {
		return nil, errx.WrapUpstream(service, status, &statusError{status: status})
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

type statusError struct{ status int }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.status) }

func isRateLimited(status int) bool {
	return status == http.StatusTooManyRequests || status == 509
}

// failureFor turns a transport or status error into the in-band payload.
func failureFor(err error) model.GeoResult {
	var se *statusError
	if !errors.As(err, &se) {
		return model.GeocodeFailure(fmt.Sprintf("Geocoding service error: %v", err))
	}
	if isRateLimited(se.status) {
		return model.GeocodeFailure(fmt.Sprintf("Rate limit exceeded by geocoding service (Status: %d). Please wait a moment and try again.", se.status))
	}
	res := model.GeocodeFailure(fmt.Sprintf("Geocoding service error (Status: %d)", se.status))
	if se.status < http.StatusInternalServerError {
		res.RetryAfter = 0
	}
	return res
}

// sharedTimeout bounds one shared lookup: two attempts and the pause between them.
func sharedTimeout(cfg model.GeocoderConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 0
	}
	return 2*cfg.Timeout + cfg.RetryDelay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
