package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/model"
)

// ===================================
// Geocode Address Tool
// ===================================

type GeocodeAddressInput struct {
	Address string `json:"address"`
}

func createGeocodeAddressTool(g model.Geocoder) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGeocodeAddress,
			Desc: "Look up a place name and return its coordinates and location details (place_name, city, state, country, latitude, longitude, timezone). On failure returns {\"success\": false, \"error\": ...}.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"address": {
					Type:     schema.String,
					Desc:     "Place name, most specific first, e.g. \"Mumbai, Maharashtra, India\".",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GeocodeAddressInput) (*model.GeoResult, error) {
			address := strings.TrimSpace(in.Address)
			if address == "" {
				res := model.GeocodeFailure("address is required")
				return &res, nil
			}
			res := g.Forward(ctx, address)
			return &res, nil
		},
	)
}
