package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/astroguru-core/server/internal/agent/graph/conversations"
	"github.com/astroguru-core/server/internal/agent/graph/nodes"
	"github.com/astroguru-core/server/internal/agent/graph/observers"
	"github.com/astroguru-core/server/internal/agent/graph/tools"
	"github.com/astroguru-core/server/internal/agent/intent"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// maxRunSteps bounds one run; the longest path visits nine stages.
const maxRunSteps = 20

// Runner executes one graph run over a session state and returns the result.
type Runner interface {
	Invoke(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error)
}

// Config holds everything needed to compose both graphs end-to-end.
type Config struct {
	APIKey       string
	BaseURL      string
	Router       model.RouterModelConfig
	Conversation model.ConversationModelConfig
	Location     model.LocationModelConfig
	Analysis     model.AnalysisModelConfig
	Windows      model.ConversationConfig
	Civil        model.CivilTime
	Geocoder     model.Geocoder
	Engine       model.ChartEngine
	Matcher      *intent.Matcher
}

// Graphs are the two compiled workflows.
type Graphs struct {
	Analysis Runner
	Query    Runner
}

// Stages holds one instance of every stage; both graphs share them.
type Stages struct {
	Router         nodes.Stage
	Collector      nodes.Stage
	Location       nodes.Stage
	Chart          nodes.Stage
	Dasha          nodes.Stage
	GoalAnalysis   nodes.Stage
	Recommendation nodes.Stage
	Summarizer     nodes.Stage
	Chat           nodes.Stage
	QueryChat      nodes.Stage
}

// Deps are the non-model collaborators of the stages.
type Deps struct {
	Windows  model.ConversationConfig
	Civil    model.CivilTime
	Geocoder model.Geocoder
	Engine   model.ChartEngine
	Matcher  *intent.Matcher
	// MaxToolRounds bounds the location tool loop.
	MaxToolRounds int
}

type graphRunner struct {
	name     string
	runnable compose.Runnable[*model.ConversationState, *model.ConversationState]
}

func (r *graphRunner) Invoke(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
	// transitions and the stage path belong to a single run
	s.Pending = model.Transition{}
	s.Visited = nil

	out, err := r.runnable.Invoke(ctx, s, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, fmt.Errorf("run %s graph: %w", r.name, err)
	}
	return out, nil
}

// BuildGraphs creates the Gemini models, every stage, and both graphs.
func BuildGraphs(ctx context.Context, cfg Config) (*Graphs, error) {
	if cfg.Geocoder == nil || cfg.Engine == nil {
		return nil, fmt.Errorf("geocoder and chart engine are required")
	}
	toolInfos, err := tools.GetToolInfos(ctx, tools.GetLocationTools(cfg.Geocoder))
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return nil, fmt.Errorf("failed to get tool infos: %w", err)
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		Router:        cfg.Router,
		Conversation:  cfg.Conversation,
		Location:      cfg.Location,
		Analysis:      cfg.Analysis,
		LocationTools: toolInfos,
	})
	if err != nil {
		return nil, err
	}

	stages, err := NewStages(ctx, cms, Deps{
		Windows:       cfg.Windows,
		Civil:         cfg.Civil,
		Geocoder:      cfg.Geocoder,
		Engine:        cfg.Engine,
		Matcher:       cfg.Matcher,
		MaxToolRounds: cfg.Location.MaxToolRounds,
	})
	if err != nil {
		return nil, err
	}

	analysis, err := BuildAnalysisGraph(ctx, stages)
	if err != nil {
		return nil, err
	}
	query, err := BuildQueryGraph(ctx, stages)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Graphs built successfully")
	return &Graphs{Analysis: analysis, Query: query}, nil
}

// NewStages builds every stage from prepared chat models.
func NewStages(ctx context.Context, cms *nodes.ChatModels, deps Deps) (*Stages, error) {
	if cms == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	matcher := deps.Matcher
	if matcher == nil {
		matcher = intent.Default()
	}
	mm := conversations.NewMessagesManager(deps.Windows)

	location, err := nodes.NewLocation(ctx, cms.Location, deps.Geocoder, deps.MaxToolRounds, deps.Civil)
	if err != nil {
		return nil, err
	}
	return &Stages{
		Router:         nodes.NewRouter(cms.Router, matcher),
		Collector:      nodes.NewCollector(cms.Conversation, mm, deps.Civil),
		Location:       location,
		Chart:          nodes.NewChart(cms.Analysis, deps.Engine, deps.Civil),
		Dasha:          nodes.NewDasha(cms.Analysis, deps.Civil),
		GoalAnalysis:   nodes.NewGoalAnalysis(cms.Analysis, deps.Civil),
		Recommendation: nodes.NewRecommendation(cms.Analysis, deps.Civil),
		Summarizer:     nodes.NewSummarizer(cms.Analysis, deps.Civil),
		Chat:           nodes.NewChat(cms.Conversation, mm, matcher),
		QueryChat:      nodes.NewQueryChat(cms.Conversation, mm, matcher, deps.Windows.QueryMaxQuestions),
	}, nil
}

// BuildAnalysisGraph compiles the full pipeline ending in the summary.
func BuildAnalysisGraph(ctx context.Context, st *Stages) (Runner, error) {
	return build(ctx, "analysis", analysisEdges, map[string]nodes.Stage{
		model.StageRouter:         st.Router,
		model.StageMain:           st.Collector,
		model.StageLocation:       st.Location,
		model.StageChart:          st.Chart,
		model.StageDasha:          st.Dasha,
		model.StageGoalAnalysis:   st.GoalAnalysis,
		model.StageRecommendation: st.Recommendation,
		model.StageSummarizer:     st.Summarizer,
		model.StageChat:           st.Chat,
	})
}

// BuildQueryGraph compiles the lighter variant that answers questions from
// the chart and life-period analyses.
func BuildQueryGraph(ctx context.Context, st *Stages) (Runner, error) {
	return build(ctx, "query", queryEdges, map[string]nodes.Stage{
		model.StageRouter:   st.Router,
		model.StageMain:     st.Collector,
		model.StageLocation: st.Location,
		model.StageChart:    st.Chart,
		model.StageDasha:    st.Dasha,
		model.StageChat:     st.QueryChat,
	})
}

func build(ctx context.Context, name string, edges Edges, stages map[string]nodes.Stage) (Runner, error) {
	g := compose.NewGraph[*model.ConversationState, *model.ConversationState]()

	for key, stage := range stages {
		if stage == nil {
			return nil, fmt.Errorf("%s graph: stage %s is nil", name, key)
		}
		if err := g.AddLambdaNode(key, nodes.NewStageLambda(stage), compose.WithNodeName(key)); err != nil {
			return nil, fmt.Errorf("%s graph: add node %s: %w", name, key, err)
		}
	}
	if err := g.AddEdge(compose.START, model.StageRouter); err != nil {
		return nil, fmt.Errorf("%s graph: add start edge: %w", name, err)
	}

	for key := range stages {
		branch := compose.NewGraphBranch(edges.condition(key), edges.targets(key))
		if err := g.AddBranch(key, branch); err != nil {
			logx.Error().Err(err).Str("node", key).Msg("Error adding branch")
			return nil, fmt.Errorf("%s graph: add branch %s: %w", name, key, err)
		}
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName(name),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Str("graph", name).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling %s graph: %w", name, err)
	}
	logx.Debug().Str("graph", name).Msg("Graph compiled successfully")
	return &graphRunner{name: name, runnable: runnable}, nil
}
