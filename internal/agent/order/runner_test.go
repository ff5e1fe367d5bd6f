package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroguru-core/server/internal/agent/agenttest"
	"github.com/astroguru-core/server/internal/agent/graph"
	"github.com/astroguru-core/server/internal/agent/model"
	"github.com/astroguru-core/server/internal/agent/repo"
)

type runnerFunc func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error)

func (f runnerFunc) Invoke(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
	return f(ctx, s)
}

func completeAnalysis(_ context.Context, s *model.ConversationState) (*model.ConversationState, error) {
	s.ChartData = &model.ChartData{Chart: agenttest.SampleChart(), Analysis: "chart"}
	s.DashaData = &model.AnalysisData{Analysis: "dasha"}
	s.GoalAnalysisData = &model.AnalysisData{Analysis: "goals"}
	s.RecommendationData = &model.AnalysisData{Analysis: "recs"}
	s.Summary = "summary"
	s.AnalysisComplete = true
	s.CurrentStep = model.StageSummarizer
	s.Pending = model.Finish()
	return s, nil
}

func answerQuery(_ context.Context, s *model.ConversationState) (*model.ConversationState, error) {
	s.ChartData = &model.ChartData{Chart: agenttest.SampleChart(), Analysis: "chart"}
	s.DashaData = &model.AnalysisData{Analysis: "dasha"}
	s.AppendTurns(s.UserMessage, "Mid 2027 looks favourable.")
	s.UserMessage = ""
	s.QueryQuestions++
	s.Pending = model.AwaitInput("answered")
	return s, nil
}

func newRunner(analysis, query graph.Runner, workers int) (*Runner, *repo.MemorySessionStore) {
	store := repo.NewMemorySessionStore()
	r := NewRunner(store, &graph.Graphs{Analysis: analysis, Query: query}, model.DefaultCivilTime, workers)
	r.newID = func() string { return "fixed" }
	r.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	return r, store
}

func seed(orderType model.OrderType) model.OrderSeed {
	s := model.OrderSeed{OrderID: "o-1", BirthDetails: agenttest.BirthDetails(), OrderType: orderType}
	s.BirthDetails.TodayDate = ""
	if orderType == model.OrderQuery {
		s.UserQuery = "When should I change jobs?"
	}
	return s
}

func TestFullReport(t *testing.T) {
	var seen *model.ConversationState
	r, store := newRunner(runnerFunc(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		seen = s.Clone()
		return completeAnalysis(ctx, s)
	}), nil, 1)

	res := r.Run(context.Background(), seed(model.OrderFullReport))
	assert.Equal(t, model.OrderCompleted, res.Status)
	assert.Equal(t, "order-fixed", res.SessionID)
	assert.Equal(t, "summary", res.Summary)
	assert.Equal(t, "recs", res.Recommendations)
	assert.Empty(t, res.Error)

	require.NotNil(t, seen.BirthDetails)
	assert.Equal(t, "2026-10-16", seen.BirthDetails.TodayDate)
	assert.Equal(t, fullReportMessage, seen.UserMessage)

	saved, err := store.Get(context.Background(), "order-fixed")
	require.NoError(t, err)
	assert.True(t, saved.AnalysisComplete)
}

func TestQueryOrder(t *testing.T) {
	var message string
	r, _ := newRunner(nil, runnerFunc(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		message = s.UserMessage
		return answerQuery(ctx, s)
	}), 1)

	res := r.Run(context.Background(), seed(model.OrderQuery))
	assert.Equal(t, model.OrderCompleted, res.Status)
	assert.Equal(t, "When should I change jobs?", message)
	assert.Equal(t, "Mid 2027 looks favourable.", res.Answer)
	assert.Equal(t, "dasha", res.LifePeriodAnalysis)
}

func TestInvalidSeeds(t *testing.T) {
	r, store := newRunner(runnerFunc(completeAnalysis), runnerFunc(answerQuery), 1)

	missingQuery := seed(model.OrderQuery)
	missingQuery.UserQuery = ""
	badDate := seed(model.OrderFullReport)
	badDate.BirthDetails.DateOfBirth = "12/05/1990"
	badType := seed(model.OrderFullReport)
	badType.OrderType = "horoscope"

	for name, s := range map[string]model.OrderSeed{"query": missingQuery, "date": badDate, "type": badType} {
		res := r.Run(context.Background(), s)
		assert.Equal(t, model.OrderFailed, res.Status, name)
		assert.Contains(t, res.Error, "invalid order", name)
	}
	assert.Zero(t, store.Len())
}

func TestStalledAnalysisFails(t *testing.T) {
	r, _ := newRunner(runnerFunc(func(_ context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.CurrentStep = model.StageChart
		s.Error = "chart engine unavailable"
		s.Pending = model.Retreat(model.StageChart, "chart_engine")
		return s, nil
	}), nil, 1)

	res := r.Run(context.Background(), seed(model.OrderFullReport))
	assert.Equal(t, model.OrderFailed, res.Status)
	assert.Equal(t, "chart engine unavailable", res.Error)
}

func TestGraphErrorFails(t *testing.T) {
	r, _ := newRunner(runnerFunc(func(context.Context, *model.ConversationState) (*model.ConversationState, error) {
		return nil, errors.New("max steps exceeded")
	}), nil, 1)

	res := r.Run(context.Background(), seed(model.OrderFullReport))
	assert.Equal(t, model.OrderFailed, res.Status)
	assert.Contains(t, res.Error, "max steps")
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	r, _ := newRunner(runnerFunc(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return completeAnalysis(ctx, s)
	}), nil, 2)

	seeds := make([]model.OrderSeed, 6)
	for i := range seeds {
		seeds[i] = seed(model.OrderFullReport)
		seeds[i].OrderID = string(rune('a' + i))
	}
	seeds[3].OrderType = "bogus"

	results := r.RunBatch(context.Background(), seeds)
	require.Len(t, results, 6)
	assert.LessOrEqual(t, peak, 2)
	for i, res := range results {
		assert.Equal(t, seeds[i].OrderID, res.OrderID)
	}
	assert.Equal(t, model.OrderFailed, results[3].Status)
	assert.Equal(t, model.OrderCompleted, results[0].Status)
}

func TestBrokenBundleIsNotSaved(t *testing.T) {
	r, store := newRunner(runnerFunc(func(_ context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.AnalysisComplete = true
		s.Summary = "summary"
		s.Pending = model.Finish()
		return s, nil
	}), nil, 1)

	res := r.Run(context.Background(), seed(model.OrderFullReport))
	assert.Equal(t, model.OrderFailed, res.Status)
	assert.Contains(t, res.Error, "full artifact bundle")
	assert.Zero(t, store.Len())
}
