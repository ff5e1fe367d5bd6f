package nodes

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// Chart computes the chart through the engine and narrates it. The raw chart
// is kept even when the narrative call fails.
type Chart struct {
	llm    LLM
	engine model.ChartEngine
	civil  model.CivilTime
	now    func() time.Time
}

func NewChart(llm LLM, engine model.ChartEngine, civil model.CivilTime) *Chart {
	return &Chart{llm: llm, engine: engine, civil: civil, now: time.Now}
}

func (c *Chart) Name() string { return model.StageChart }

func (c *Chart) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	if s.ChartData != nil {
		return s, model.Advance(), nil
	}
	if s.BirthDetails == nil {
		return fail(s, model.StageMain, stageError(model.StageChart, "missing_birth_details", nil, "no birth details for chart"))
	}
	if s.LocationData == nil || !s.BirthDetails.HasCoordinates() {
		return fail(s, model.StageLocation, stageError(model.StageChart, "missing_location", nil, "birth place not resolved"))
	}

	req, err := model.NewChartRequest(*s.BirthDetails, c.civil)
	if err != nil {
		return fail(s, model.StageMain, stageError(model.StageChart, "chart_input", err, "invalid chart input"))
	}

	chart, err := c.engine.Compute(ctx, req)
	if err != nil {
		if errx.IsClientError(err) {
			return fail(s, model.StageMain, stageError(model.StageChart, "chart_rejected", err, "chart engine rejected the birth data"))
		}
		return fail(s, model.StageChart, stageError(model.StageChart, "chart_engine", err, "chart engine unavailable"))
	}
	if missing := chart.Incomplete(); len(missing) > 0 {
		return fail(s, model.StageChart, stageError(model.StageChart, "chart_incomplete", nil,
			"chart engine omitted required fields: "+strings.Join(missing, ", "), "missing", missing))
	}

	data := &model.ChartData{Chart: chart, GeneratedAt: c.now().UTC()}
	if narrative, err := c.narrate(ctx, &s, chart); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("chart narrative failed, keeping raw chart")
		s.Error = stageError(model.StageChart, "chart_narrative", err, "chart narrative failed").Error()
	} else {
		data.Analysis = narrative
		data.Model = c.llm.Settings.Model
		s.Error = ""
	}
	s.ChartData = data
	return s, model.Advance(), nil
}

func (c *Chart) narrate(ctx context.Context, s *model.ConversationState, chart *model.Chart) (string, error) {
	raw, err := json.MarshalIndent(chart, "", "  ")
	if err != nil {
		return "", err
	}
	vars := prompts.BirthVars(s.BirthDetails, c.civil)
	vars["chart_json"] = string(raw)
	msgs, err := prompts.Messages(ctx, prompts.Chart, vars, nil)
	if err != nil {
		return "", err
	}
	text, err := generateText(ctx, c.llm, s, msgs)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
