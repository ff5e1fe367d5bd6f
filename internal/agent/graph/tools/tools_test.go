package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroguru-core/server/internal/agent/model"
)

type stubGeocoder struct {
	forward  []string
	reverses [][2]float64
	result   model.GeoResult
}

func (s *stubGeocoder) Forward(_ context.Context, address string) model.GeoResult {
	s.forward = append(s.forward, address)
	return s.result
}

func (s *stubGeocoder) Reverse(_ context.Context, lat, lon float64) model.GeoResult {
	s.reverses = append(s.reverses, [2]float64{lat, lon})
	return s.result
}

func run(t *testing.T, bt tool.BaseTool, args string) model.GeoResult {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	require.True(t, ok)
	out, err := it.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	var res model.GeoResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func TestGeocodeAddressTool(t *testing.T) {
	g := &stubGeocoder{result: model.GeoResult{Success: true, City: "Mumbai", Latitude: 19.076, Longitude: 72.8777}}
	tools := GetLocationTools(g)

	res := run(t, tools[0], `{"address": "  Mumbai, India "}`)
	assert.True(t, res.Success)
	assert.Equal(t, "Mumbai", res.City)
	assert.Equal(t, []string{"Mumbai, India"}, g.forward)

	res = run(t, tools[0], `{"address": ""}`)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.RetryAfter)
	assert.Len(t, g.forward, 1, "empty address never reaches the geocoder")
}

func TestReverseGeocodeToolRejectsOutOfRange(t *testing.T) {
	g := &stubGeocoder{result: model.GeoResult{Success: true, City: "Pune"}}
	tools := GetLocationTools(g)

	res := run(t, tools[1], `{"latitude": 18.52, "longitude": 73.85}`)
	assert.True(t, res.Success)
	assert.Equal(t, [][2]float64{{18.52, 73.85}}, g.reverses)

	res = run(t, tools[1], `{"latitude": 91, "longitude": 73.85}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "latitude")

	res = run(t, tools[1], `{"latitude": 10, "longitude": -190}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "longitude")
	assert.Len(t, g.reverses, 1)
}

func TestGetToolInfos(t *testing.T) {
	infos, err := GetToolInfos(context.Background(), GetLocationTools(&stubGeocoder{}))
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ToolGeocodeAddress, infos[0].Name)
	assert.Equal(t, ToolReverseGeocode, infos[1].Name)
}

func TestSanitizeArguments(t *testing.T) {
	assert.JSONEq(t, `{"address":"Pune, India"}`, SanitizeArguments(ToolGeocodeAddress, `{"query": " Pune, India "}`))
	assert.JSONEq(t, `{"address":"12345"}`, SanitizeArguments(ToolGeocodeAddress, `{"address": 12345}`))
	assert.JSONEq(t, `{"latitude":18.5,"longitude":73.8}`, SanitizeArguments(ToolReverseGeocode, `{"lat": "18.5", "lng": 73.8}`))
	assert.JSONEq(t, `{"longitude":73.8}`, SanitizeArguments(ToolReverseGeocode, `{"latitude": "north", "longitude": 73.8}`))
	assert.Equal(t, "not json", SanitizeArguments(ToolGeocodeAddress, "not json"))
	assert.JSONEq(t, `{"unknown":true}`, SanitizeArguments("other", `{"unknown":true}`))
}

func TestUnknownToolResult(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(UnknownToolResult("lookup")), &m))
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "lookup", m["name"])
}
