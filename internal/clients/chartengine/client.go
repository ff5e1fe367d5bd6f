// Package chartengine talks to the chart computation service over HTTP.
package chartengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

const (
	service       = "chart_engine"
	chartPath     = "/chart"
	birthLayout   = "2006-01-02T15:04:05"
	maxErrorBody  = 512
	maxChartBytes = 4 << 20
)

var tracer = otel.Tracer("github.com/astroguru-core/server/internal/clients/chartengine")

// Client implements model.ChartEngine.
type Client struct {
	http *http.Client
	url  string
}

var _ model.ChartEngine = (*Client)(nil)

func New(cfg model.ChartEngineConfig) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		url:  strings.TrimRight(cfg.URL, "/") + chartPath,
	}
}

// wireRequest carries the naive birth time as a local timestamp next to its offset.
type wireRequest struct {
	model.ChartRequest
	BirthDateTime string `json:"birth_datetime"`
}

// Compute posts the request and decodes the chart. A 4xx answer keeps its
// status so callers can tell rejected input from an outage.
func (c *Client) Compute(ctx context.Context, req model.ChartRequest) (*model.Chart, error) {
	ctx, span := tracer.Start(ctx, "chart_engine.compute", trace.WithAttributes(
		attribute.Float64("chart.latitude", req.Latitude),
		attribute.Float64("chart.longitude", req.Longitude),
	))
	defer span.End()

	chart, err := c.compute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chart computation failed")
		logx.Ctx(ctx).Error().Err(err).Msg("chart engine call failed")
		return nil, err
	}
	return chart, nil
}

func (c *Client) compute(ctx context.Context, req model.ChartRequest) (*model.Chart, error) {
	payload, err := json.Marshal(wireRequest{
		ChartRequest:  req,
		BirthDateTime: req.BirthDateTime.Format(birthLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errx.WrapUpstream(service, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errx.WrapUpstream(service, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var chart model.Chart
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxChartBytes)).Decode(&chart); err != nil {
		return nil, errx.WrapUpstream(service, 0, fmt.Errorf("decode chart: %w", err))
	}
	return &chart, nil
}
