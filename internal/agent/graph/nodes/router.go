package nodes

import (
	"context"

	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/intent"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// Router picks between detail collection and chat. The decision table runs
// first; only unmatched first messages reach the classification model.
type Router struct {
	llm     LLM
	matcher *intent.Matcher
}

func NewRouter(llm LLM, matcher *intent.Matcher) *Router {
	return &Router{llm: llm, matcher: matcher}
}

func (r *Router) Name() string { return model.StageRouter }

func (r *Router) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	outcome, rule := r.matcher.Decide(intent.Signals{
		Message:          s.UserMessage,
		HasHistory:       len(s.Messages) > 0,
		HasBirthDetails:  s.BirthDetails != nil,
		Collecting:       s.Collecting,
		AnalysisComplete: s.AnalysisComplete,
	})
	if outcome == intent.Classify {
		outcome = r.classify(ctx, &s)
	}

	logx.Ctx(ctx).Debug().Str("rule", rule).Str("outcome", string(outcome)).Msg("routed")
	if outcome == intent.Analysis {
		return s, model.ToAnalysis(rule), nil
	}
	return s, model.ToChat(rule), nil
}

// classify asks the model for a single word; any failure falls back to keywords.
func (r *Router) classify(ctx context.Context, s *model.ConversationState) intent.Outcome {
	msgs, err := prompts.Messages(ctx, prompts.Router, map[string]any{"message": s.UserMessage}, nil)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("router prompt failed, using keyword fallback")
		return r.matcher.KeywordFallback(s.UserMessage)
	}
	reply, err := generateText(ctx, r.llm, s, msgs)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("classification failed, using keyword fallback")
		return r.matcher.KeywordFallback(s.UserMessage)
	}
	return r.matcher.Classified(reply, s.UserMessage)
}
