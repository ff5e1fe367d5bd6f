package graph

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/astroguru-core/server/internal/agent/model"
)

// Edges maps a stage and the kind of transition it returned to the next
// node. Anything unmapped ends the run; AwaitInput, Retreat and Finish are
// never mapped.
type Edges map[string]map[model.TransitionKind]string

var analysisEdges = Edges{
	model.StageRouter: {
		model.TransitionAnalysis: model.StageMain,
		model.TransitionChat:     model.StageChat,
	},
	model.StageMain:           {model.TransitionAdvance: model.StageLocation},
	model.StageLocation:       {model.TransitionAdvance: model.StageChart},
	model.StageChart:          {model.TransitionAdvance: model.StageDasha},
	model.StageDasha:          {model.TransitionAdvance: model.StageGoalAnalysis},
	model.StageGoalAnalysis:   {model.TransitionAdvance: model.StageRecommendation},
	model.StageRecommendation: {model.TransitionAdvance: model.StageSummarizer},
	model.StageSummarizer:     {},
	model.StageChat:           {model.TransitionAnalysis: model.StageMain},
}

var queryEdges = Edges{
	model.StageRouter: {
		model.TransitionAnalysis: model.StageMain,
		model.TransitionChat:     model.StageChat,
	},
	model.StageMain:     {model.TransitionAdvance: model.StageLocation},
	model.StageLocation: {model.TransitionAdvance: model.StageChart},
	model.StageChart:    {model.TransitionAdvance: model.StageDasha},
	model.StageDasha:    {model.TransitionAdvance: model.StageChat},
	model.StageChat:     {model.TransitionAnalysis: model.StageMain},
}

// AnalysisEdges returns the transition table of the full graph.
func AnalysisEdges() Edges { return analysisEdges }

// QueryEdges returns the transition table of the query graph.
func QueryEdges() Edges { return queryEdges }

// Next resolves where a transition from stage leads.
func (e Edges) Next(stage string, t model.Transition) string {
	if next, ok := e[stage][t.Kind]; ok {
		return next
	}
	return compose.END
}

func (e Edges) condition(stage string) func(context.Context, *model.ConversationState) (string, error) {
	return func(_ context.Context, s *model.ConversationState) (string, error) {
		return e.Next(stage, s.Pending), nil
	}
}

func (e Edges) targets(stage string) map[string]bool {
	out := map[string]bool{compose.END: true}
	for _, next := range e[stage] {
		out[next] = true
	}
	return out
}
