package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/model"
)

type ReverseGeocodeInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func createReverseGeocodeTool(g model.Geocoder) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolReverseGeocode,
			Desc: "Describe known coordinates: returns place_name, city, state, country and timezone for a latitude/longitude pair. On failure returns {\"success\": false, \"error\": ...}.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"latitude": {
					Type:     schema.Number,
					Desc:     "Latitude in decimal degrees, -90 to 90.",
					Required: true,
				},
				"longitude": {
					Type:     schema.Number,
					Desc:     "Longitude in decimal degrees, -180 to 180.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ReverseGeocodeInput) (*model.GeoResult, error) {
			if in.Latitude < -90 || in.Latitude > 90 {
				res := model.GeocodeFailure(fmt.Sprintf("latitude %v out of range [-90, 90]", in.Latitude))
				return &res, nil
			}
			if in.Longitude < -180 || in.Longitude > 180 {
				res := model.GeocodeFailure(fmt.Sprintf("longitude %v out of range [-180, 180]", in.Longitude))
				return &res, nil
			}
			res := g.Reverse(ctx, in.Latitude, in.Longitude)
			return &res, nil
		},
	)
}
