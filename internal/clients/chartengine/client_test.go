package chartengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroguru-core/server/internal/agent/agenttest"
	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
)

func chartRequest(t *testing.T) model.ChartRequest {
	t.Helper()
	b := agenttest.BirthDetails().WithLocation(19.076, 72.8777, "Asia/Kolkata")
	req, err := model.NewChartRequest(b, model.DefaultCivilTime)
	require.NoError(t, err)
	return req
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(model.ChartEngineConfig{URL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestCompute(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chart", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1990-05-12T06:30:00", body["birth_datetime"])
		assert.Equal(t, 5.5, body["utc_offset"])
		assert.Equal(t, 19.076, body["latitude"])
		assert.Equal(t, "Mumbai, India", body["location"])
		assert.Len(t, body["divisional_charts"], len(model.DefaultDivisionalCharts))

		_ = json.NewEncoder(w).Encode(agenttest.SampleChart())
	})

	chart, err := c.Compute(context.Background(), chartRequest(t))
	require.NoError(t, err)
	assert.Empty(t, chart.Incomplete())
	assert.Equal(t, "Taurus", chart.Ascendant.Sign)
	require.NotNil(t, chart.Dasha.Current)
	assert.Equal(t, "Jupiter", chart.Dasha.Current.Planet)
}

func TestComputeRejectedInput(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "latitude out of range", http.StatusUnprocessableEntity)
	})

	_, err := c.Compute(context.Background(), chartRequest(t))
	require.Error(t, err)
	assert.True(t, errx.IsClientError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, errx.StatusOf(err))
	assert.Contains(t, err.Error(), "latitude out of range")
}

func TestComputeOutage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Compute(context.Background(), chartRequest(t))
	require.Error(t, err)
	assert.False(t, errx.IsClientError(err))
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestComputeUndecodableBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.Compute(context.Background(), chartRequest(t))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestComputeUnreachable(t *testing.T) {
	c := New(model.ChartEngineConfig{URL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Compute(context.Background(), chartRequest(t))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}
