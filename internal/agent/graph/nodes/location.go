package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/graph/parsers"
	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/graph/tools"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// Location resolves the birth place with a bounded geocoding tool loop and
// pins the timezone to the civil reference zone.
type Location struct {
	llm       LLM
	tools     *compose.ToolsNode
	maxRounds int
	civil     model.CivilTime
}

// NewLocation builds the stage. llm must already have the location tools bound.
func NewLocation(ctx context.Context, llm LLM, geocoder model.Geocoder, maxRounds int, civil model.CivilTime) (*Location, error) {
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               tools.GetLocationTools(geocoder),
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Ctx(ctx).Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return tools.UnknownToolResult(name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return tools.SanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}
	return &Location{
		llm:       llm,
		tools:     toolsNode,
		maxRounds: normalizeMaxToolRounds(maxRounds),
		civil:     civil,
	}, nil
}

func (l *Location) Name() string { return model.StageLocation }

func (l *Location) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	if s.LocationData != nil {
		return s, model.Advance(), nil
	}
	if s.BirthDetails == nil {
		return fail(s, model.StageMain, stageError(model.StageLocation, "missing_birth_details", nil, "no birth details to locate"))
	}

	vars := map[string]any{
		"civil_zone": l.civil.Zone,
		"place":      s.BirthDetails.PlaceOfBirth,
	}
	if s.BirthDetails.HasCoordinates() {
		vars["has_coordinates"] = true
		vars["latitude"] = *s.BirthDetails.Latitude
		vars["longitude"] = *s.BirthDetails.Longitude
	}
	msgs, err := prompts.Messages(ctx, prompts.Location, vars, nil)
	if err != nil {
		return s, model.Transition{}, err
	}

	final, err := l.resolve(ctx, &s, msgs)
	if err != nil {
		// transport failure: keep the details and retry this stage next turn
		return fail(s, model.StageLocation, stageError(model.StageLocation, "location_llm", err, "location model call failed"))
	}

	loc, err := parsers.ExtractLocation(final)
	if err != nil {
		code := "location_invalid"
		if errors.Is(err, parsers.ErrNoLocationObject) {
			code = "location_missing"
		}
		return fail(s, model.StageMain, stageError(model.StageLocation, code, err, "could not resolve birth place",
			"place", s.BirthDetails.PlaceOfBirth))
	}
	if loc.ReportedTimezone != "" && loc.ReportedTimezone != l.civil.Zone {
		logx.Ctx(ctx).Debug().
			Str("reported_timezone", loc.ReportedTimezone).
			Str("civil_zone", l.civil.Zone).
			Msg("timezone overridden with civil reference")
	}
	loc.Timezone = l.civil.Zone

	located := s.BirthDetails.WithLocation(loc.Latitude, loc.Longitude, loc.Timezone)
	s.BirthDetails = &located
	s.LocationData = &loc
	s.Error = ""
	return s, model.Advance(), nil
}

// resolve runs the tool loop and returns the final text answer.
func (l *Location) resolve(ctx context.Context, s *model.ConversationState, msgs []*schema.Message) (string, error) {
	seq := 0
	for round := 1; round <= l.maxRounds; round++ {
		if round == l.maxRounds {
			msgs = append(msgs, toolLimitNotice(l.maxRounds))
		}
		out, err := generate(ctx, l.llm, s, msgs)
		if err != nil {
			return "", err
		}
		if len(out.ToolCalls) == 0 || round == l.maxRounds {
			if len(out.ToolCalls) > 0 {
				logx.Ctx(ctx).Warn().Int("tool_calls", len(out.ToolCalls)).Msg("tool round limit reached, ignoring calls")
			}
			return out.Content, nil
		}

		normalizeToolCallIDs(out, &seq)
		logx.Ctx(ctx).Debug().Int("round", round).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		results, err := l.tools.Invoke(ctx, out)
		if err != nil {
			return "", fmt.Errorf("execute tools: %w", err)
		}
		msgs = append(msgs, out)
		msgs = append(msgs, results...)
	}
	return "", errors.New("tool loop ended without an answer")
}
