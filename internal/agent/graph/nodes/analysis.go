package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/model"
)

var errEmptyReply = errors.New("model returned an empty reply")

// Analysis is one of the analytical stages between chart and summary. They
// share a shape: check upstream artifacts, render the full inputs, store the reply.
type Analysis struct {
	name   string
	prompt prompts.Name
	llm    LLM
	civil  model.CivilTime
	now    func() time.Time

	// missing returns the owner of the first absent upstream artifact.
	missing func(s *model.ConversationState) string
	done    func(s *model.ConversationState) bool
	vars    func(s *model.ConversationState) (map[string]any, error)
	store   func(s *model.ConversationState, data *model.AnalysisData)
}

func (a *Analysis) Name() string { return a.name }

func (a *Analysis) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	if a.done(&s) {
		return s, model.Advance(), nil
	}
	if owner := a.missing(&s); owner != "" {
		return fail(s, owner, stageError(a.name, "missing_"+owner, nil, "upstream artifact missing", "owner", owner))
	}

	vars, err := a.vars(&s)
	if err != nil {
		return fail(s, a.name, stageError(a.name, a.name+"_input", err, "could not prepare analysis input"))
	}
	for k, v := range prompts.BirthVars(s.BirthDetails, a.civil) {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}
	msgs, err := prompts.Messages(ctx, a.prompt, vars, nil)
	if err != nil {
		return s, model.Transition{}, err
	}

	text, err := generateText(ctx, a.llm, &s, msgs)
	if err == nil && text == "" {
		err = errEmptyReply
	}
	if err != nil {
		return fail(s, a.name, stageError(a.name, a.name+"_llm", err, "analysis call failed"))
	}

	a.store(&s, &model.AnalysisData{
		Analysis:    text,
		Model:       a.llm.Settings.Model,
		InputChars:  inputChars(msgs),
		GeneratedAt: a.now().UTC(),
	})
	s.Error = ""
	return s, model.Advance(), nil
}

func inputChars(msgs []*schema.Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}

func chartAnalysis(s *model.ConversationState) string {
	if s.ChartData == nil {
		return ""
	}
	return s.ChartData.Analysis
}

func analysisText(d *model.AnalysisData) string {
	if d == nil {
		return ""
	}
	return d.Analysis
}

func firstMissing(s *model.ConversationState, upTo string) string {
	checks := []struct {
		owner   string
		present bool
	}{
		{model.StageMain, s.BirthDetails != nil},
		{model.StageChart, s.ChartData != nil && s.ChartData.Chart != nil},
		{model.StageDasha, s.DashaData != nil},
		{model.StageGoalAnalysis, s.GoalAnalysisData != nil},
		{model.StageRecommendation, s.RecommendationData != nil},
	}
	for _, c := range checks {
		if !c.present {
			return c.owner
		}
		if c.owner == upTo {
			break
		}
	}
	return ""
}

// NewDasha builds the life-period stage.
func NewDasha(llm LLM, civil model.CivilTime) *Analysis {
	return &Analysis{
		name:    model.StageDasha,
		prompt:  prompts.Dasha,
		llm:     llm,
		civil:   civil,
		now:     time.Now,
		missing: func(s *model.ConversationState) string { return firstMissing(s, model.StageChart) },
		done:    func(s *model.ConversationState) bool { return s.DashaData != nil },
		vars: func(s *model.ConversationState) (map[string]any, error) {
			raw, err := json.MarshalIndent(s.ChartData.Chart.Dasha, "", "  ")
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"chart_analysis": chartAnalysis(s),
				"dasha_json":     string(raw),
			}, nil
		},
		store: func(s *model.ConversationState, d *model.AnalysisData) { s.DashaData = d },
	}
}

// NewGoalAnalysis builds the goal stage.
func NewGoalAnalysis(llm LLM, civil model.CivilTime) *Analysis {
	return &Analysis{
		name:    model.StageGoalAnalysis,
		prompt:  prompts.GoalAnalysis,
		llm:     llm,
		civil:   civil,
		now:     time.Now,
		missing: func(s *model.ConversationState) string { return firstMissing(s, model.StageDasha) },
		done:    func(s *model.ConversationState) bool { return s.GoalAnalysisData != nil },
		vars: func(s *model.ConversationState) (map[string]any, error) {
			raw, err := json.MarshalIndent(s.ChartData.Chart, "", "  ")
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"chart_analysis": chartAnalysis(s),
				"chart_json":     string(raw),
				"dasha_analysis": analysisText(s.DashaData),
				"transits":       prompts.TransitText(),
			}, nil
		},
		store: func(s *model.ConversationState, d *model.AnalysisData) { s.GoalAnalysisData = d },
	}
}

// NewRecommendation builds the recommendation stage.
func NewRecommendation(llm LLM, civil model.CivilTime) *Analysis {
	return &Analysis{
		name:    model.StageRecommendation,
		prompt:  prompts.Recommendation,
		llm:     llm,
		civil:   civil,
		now:     time.Now,
		missing: func(s *model.ConversationState) string { return firstMissing(s, model.StageGoalAnalysis) },
		done:    func(s *model.ConversationState) bool { return s.RecommendationData != nil },
		vars: func(s *model.ConversationState) (map[string]any, error) {
			return map[string]any{
				"chart_analysis": chartAnalysis(s),
				"dasha_analysis": analysisText(s.DashaData),
				"goal_analysis":  analysisText(s.GoalAnalysisData),
				"transits":       prompts.TransitText(),
			}, nil
		},
		store: func(s *model.ConversationState, d *model.AnalysisData) { s.RecommendationData = d },
	}
}
