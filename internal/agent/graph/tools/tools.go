package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/model"
)

const (
	ToolGeocodeAddress = "geocode_address"
	ToolReverseGeocode = "reverse_geocode"
)

// GetLocationTools returns the tools offered to the location model.
func GetLocationTools(g model.Geocoder) []tool.BaseTool {
	return []tool.BaseTool{
		createGeocodeAddressTool(g),
		createReverseGeocodeTool(g),
	}
}

// GetToolInfos collects the schema of each tool for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// UnknownToolResult is returned to the model for hallucinated tool names.
func UnknownToolResult(name string) string {
	return fmt.Sprintf("{\"success\":false,\"error\":\"unknown_tool\",\"name\":%q}", name)
}

// SanitizeArguments repairs common argument mistakes before a tool runs.
// It never fails; unparsable input is passed through unchanged.
func SanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	switch name {
	case ToolGeocodeAddress:
		// address: string (required); some models send "query" or "place"
		if _, ok := m["address"]; !ok {
			for _, alt := range []string{"query", "place", "location"} {
				if v, ok := m[alt]; ok {
					m["address"] = v
					delete(m, alt)
					break
				}
			}
		}
		if v, ok := m["address"]; ok {
			switch vv := v.(type) {
			case string:
				m["address"] = strings.TrimSpace(vv)
			default:
				m["address"] = strings.TrimSpace(fmt.Sprint(v))
			}
		}
	case ToolReverseGeocode:
		for key, alts := range map[string][]string{"latitude": {"lat"}, "longitude": {"lon", "lng"}} {
			if _, ok := m[key]; !ok {
				for _, alt := range alts {
					if v, ok := m[alt]; ok {
						m[key] = v
						delete(m, alt)
						break
					}
				}
			}
			// numbers sent as strings
			if s, ok := m[key].(string); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					m[key] = f
				} else {
					delete(m, key)
				}
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}
