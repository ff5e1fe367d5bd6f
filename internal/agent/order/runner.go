// Package order runs analyses seeded by paid orders instead of a conversation.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/astroguru-core/server/internal/agent/graph"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// fullReportMessage stands in for the user turn of a report order.
const fullReportMessage = "Please prepare my complete astrology report."

// Runner executes order seeds against fresh sessions.
type Runner struct {
	store    model.SessionStore
	analysis graph.Runner
	query    graph.Runner
	civil    model.CivilTime
	workers  int
	newID    func() string
	now      func() time.Time
}

func NewRunner(store model.SessionStore, graphs *graph.Graphs, civil model.CivilTime, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		store:    store,
		analysis: graphs.Analysis,
		query:    graphs.Query,
		civil:    civil,
		workers:  workers,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Run processes one seed. Failures are reported in the result, never as errors.
func (r *Runner) Run(ctx context.Context, seed model.OrderSeed) model.OrderResult {
	res := model.OrderResult{OrderID: seed.OrderID, Status: model.OrderFailed}
	if err := model.Validator().Struct(seed); err != nil {
		res.Error = fmt.Sprintf("invalid order: %v", err)
		return res
	}

	id := "order-" + r.newID()
	res.SessionID = id
	ctx = logx.WithContext(ctx, map[string]string{"session_id": id, "order_id": seed.OrderID})

	details := seed.BirthDetails
	details.TodayDate = r.civil.Today(r.now())
	state := model.NewConversationState(id)
	state.BirthDetails = &details

	runner, message := r.analysis, fullReportMessage
	if seed.OrderType == model.OrderQuery {
		runner, message = r.query, seed.UserQuery
	}
	state.UserMessage = message

	out, err := runner.Invoke(ctx, state)
	if err == nil {
		err = out.CheckInvariants()
	}
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("order run failed")
		res.Error = err.Error()
		return res
	}
	pending := out.Pending
	out.UserMessage = ""
	if err := r.store.Put(ctx, id, out); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("failed to save order session")
	}

	fill(&res, out)
	switch seed.OrderType {
	case model.OrderQuery:
		if out.QueryQuestions > 0 {
			res.Answer, _ = out.LastAssistantSince(0)
			res.Status = model.OrderCompleted
		}
	default:
		if pending.Kind == model.TransitionFinish && out.AnalysisComplete {
			res.Status = model.OrderCompleted
		}
	}
	if res.Status == model.OrderFailed {
		res.Error = failureReason(out, pending)
	}

	logx.Ctx(ctx).Info().
		Str("order_type", string(seed.OrderType)).
		Str("status", string(res.Status)).
		Strs("path", out.Visited).
		Float64("usage_cost_usd", out.UsageCostUSD).
		Msg("order processed")
	return res
}

// RunBatch processes seeds with bounded concurrency; results keep the seed order.
func (r *Runner) RunBatch(ctx context.Context, seeds []model.OrderSeed) []model.OrderResult {
	results := make([]model.OrderResult, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, seed := range seeds {
		g.Go(func() error {
			results[i] = r.Run(ctx, seed)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func fill(res *model.OrderResult, s *model.ConversationState) {
	res.Summary = s.Summary
	if s.ChartData != nil {
		res.ChartAnalysis = s.ChartData.Analysis
	}
	if s.DashaData != nil {
		res.LifePeriodAnalysis = s.DashaData.Analysis
	}
	if s.GoalAnalysisData != nil {
		res.GoalAnalysis = s.GoalAnalysisData.Analysis
	}
	if s.RecommendationData != nil {
		res.Recommendations = s.RecommendationData.Analysis
	}
}

func failureReason(s *model.ConversationState, pending model.Transition) string {
	if s.Error != "" {
		return s.Error
	}
	return fmt.Sprintf("analysis stopped at %s (%s)", s.CurrentStep, pending)
}
