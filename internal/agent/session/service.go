// Package session is the request glue around the workflow graphs: it
// serializes runs per session, loads and saves snapshots and turns the
// final state into a response.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/astroguru-core/server/internal/agent/graph"
	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

const (
	// RunFailedReply is returned when a run fails for infrastructure reasons.
	RunFailedReply = "I apologize, but something went wrong while processing your message. Please try again."
	// FallbackReply is used when a run produced nothing to say.
	FallbackReply = "I apologize, but I couldn't generate a response."
	// RetryDetailsReply follows a run that had to discard the birth details.
	RetryDetailsReply = "I couldn't work with those birth details. Could you share your name, date of birth, time of birth and place of birth again?"
	// ResumeReply follows a run that stopped partway through the analysis.
	ResumeReply = "I ran into a problem while preparing your reading. Send any message and I'll pick up where I left off."
)

// ErrNotFound is returned by Snapshot for sessions that were never saved.
var ErrNotFound = errors.New("session not found")

// Service runs one graph per request against a persisted session.
type Service struct {
	store    model.SessionStore
	locker   model.Locker
	analysis graph.Runner
	query    graph.Runner
	newID    func() string
}

func NewService(store model.SessionStore, locker model.Locker, graphs *graph.Graphs) *Service {
	return &Service{
		store:    store,
		locker:   locker,
		analysis: graphs.Analysis,
		query:    graphs.Query,
		newID:    uuid.NewString,
	}
}

// Chat runs the full analysis graph for one user message.
func (s *Service) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	return s.run(ctx, s.analysis, req)
}

// Query runs the lighter query graph for one user message.
func (s *Service) Query(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	return s.run(ctx, s.query, req)
}

// Snapshot returns the persisted state of a session.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(state.Messages) == 0 && state.BirthDetails == nil && !state.Collecting {
		return nil, errx.New(ErrNotFound, http.StatusNotFound, ErrNotFound.Error())
	}
	return state, nil
}

func (s *Service) sessionID(req model.ChatRequest) string {
	switch {
	case req.NewSession:
		return s.newID()
	case strings.TrimSpace(req.SessionID) != "":
		return strings.TrimSpace(req.SessionID)
	default:
		return model.DefaultSessionID
	}
}

func (s *Service) run(ctx context.Context, runner graph.Runner, req model.ChatRequest) (*model.ChatResponse, error) {
	if err := model.Validator().Struct(req); err != nil {
		return nil, errx.Validation(err)
	}
	id := s.sessionID(req)
	ctx = logx.WithContext(ctx, map[string]string{"session_id": id})

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := len(state.Messages)
	wasComplete := state.AnalysisComplete
	state.UserMessage = req.Message

	out, err := runner.Invoke(ctx, state)
	if err == nil {
		err = out.CheckInvariants()
	}
	if err != nil {
		// the pre-run snapshot stays in the store
		logx.Ctx(ctx).Error().Err(err).Msg("graph run failed")
		return &model.ChatResponse{
			Response:         RunFailedReply,
			AnalysisComplete: wasComplete,
			AwaitingInput:    true,
			SessionID:        id,
		}, nil
	}

	pending := out.Pending
	out.UserMessage = ""
	if err := s.store.Put(ctx, id, out); err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("failed to save session")
		return nil, err
	}

	logx.Ctx(ctx).Info().
		Strs("path", out.Visited).
		Str("transition", pending.String()).
		Bool("analysis_complete", out.AnalysisComplete).
		Float64("usage_cost_usd", out.UsageCostUSD).
		Msg("run finished")
	return Response(out, pending, before), nil
}

// Response builds the caller-facing view of a finished run. before is the
// number of stored turns when the run started.
func Response(s *model.ConversationState, pending model.Transition, before int) *model.ChatResponse {
	resp := &model.ChatResponse{
		Response:         replyText(s, pending, before),
		AnalysisComplete: s.AnalysisComplete,
		AwaitingInput:    pending.Awaiting(),
		Summary:          s.Summary,
		UsageCostUSD:     s.UsageCostUSD,
		SessionID:        s.SessionID,
	}
	if s.ChartData != nil {
		resp.ChartAnalysis = s.ChartData.Analysis
	}
	if s.DashaData != nil {
		resp.LifePeriodAnalysis = s.DashaData.Analysis
	}
	if s.GoalAnalysisData != nil {
		resp.GoalAnalysis = s.GoalAnalysisData.Analysis
	}
	if s.RecommendationData != nil {
		resp.Recommendations = s.RecommendationData.Analysis
	}
	return resp
}

func replyText(s *model.ConversationState, pending model.Transition, before int) string {
	if pending.Kind == model.TransitionFinish && s.Summary != "" {
		return s.Summary
	}
	// a retreat discards whatever the run said before the failure
	if pending.Kind == model.TransitionRetreat {
		if pending.Target == model.StageMain {
			return RetryDetailsReply
		}
		return ResumeReply
	}
	if text, ok := s.LastAssistantSince(before); ok && text != "" {
		return text
	}
	return FallbackReply
}
