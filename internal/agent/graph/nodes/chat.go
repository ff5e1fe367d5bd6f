package nodes

import (
	"context"
	"strings"

	"github.com/astroguru-core/server/internal/agent/graph/conversations"
	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/intent"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

const (
	// ChatApology replaces the reply when the chat model cannot be reached.
	ChatApology = "I apologize, but I encountered an error while processing your request. Please try again."
	// QueryLimitNotice answers questions beyond the query allowance.
	QueryLimitNotice = "You have reached the maximum number of questions for this reading. Thank you for using AstroGuru! To ask more questions, please start a new reading."
)

// ChatMode selects the full conversational responder or the query variant.
type ChatMode int

const (
	ModeChat ChatMode = iota
	ModeQuery
)

// Chat answers free conversation, grounded on the finished analysis when
// there is one. In query mode it answers from the chart and life-period
// analyses and enforces the question allowance.
type Chat struct {
	llm          LLM
	mm           *conversations.MessagesManager
	matcher      *intent.Matcher
	mode         ChatMode
	maxQuestions int
}

func NewChat(llm LLM, mm *conversations.MessagesManager, matcher *intent.Matcher) *Chat {
	return &Chat{llm: llm, mm: mm, matcher: matcher, mode: ModeChat}
}

func NewQueryChat(llm LLM, mm *conversations.MessagesManager, matcher *intent.Matcher, maxQuestions int) *Chat {
	return &Chat{llm: llm, mm: mm, matcher: matcher, mode: ModeQuery, maxQuestions: maxQuestions}
}

func (c *Chat) Name() string { return model.StageChat }

func (c *Chat) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	userMessage := strings.TrimSpace(s.UserMessage)
	if userMessage == "" {
		return s, model.AwaitInput("no message"), nil
	}

	// handoffs keep the message so detail collection consumes it
	if !s.AnalysisComplete && s.BirthDetails == nil && c.matcher.WantsAnalysis(userMessage) {
		logx.Ctx(ctx).Info().Msg("chat handing off to detail collection")
		return s, model.ToAnalysis("analysis requested"), nil
	}
	if c.mode == ModeChat && s.AnalysisComplete && c.matcher.IsNewAnalysis(userMessage) {
		logx.Ctx(ctx).Info().Msg("new analysis requested, clearing artifacts")
		s.ResetAnalysis()
		return s, model.ToAnalysis("new analysis"), nil
	}

	if c.mode == ModeQuery && c.maxQuestions > 0 && s.QueryQuestions >= c.maxQuestions {
		s.AppendTurns(userMessage, QueryLimitNotice)
		s.UserMessage = ""
		return s, model.AwaitInput("question limit"), nil
	}

	reply := ChatApology
	text, err := c.respond(ctx, &s, userMessage)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("chat call failed")
		s.Error = stageError(model.StageChat, "chat_llm", err, "chat call failed").Error()
	} else if text != "" {
		reply = text
	}

	s.AppendTurns(userMessage, reply)
	s.UserMessage = ""
	if c.mode == ModeQuery && err == nil {
		s.QueryQuestions++
	}
	return s, model.AwaitInput("answered"), nil
}

func (c *Chat) respond(ctx context.Context, s *model.ConversationState, userMessage string) (string, error) {
	name, window := prompts.Chat, conversations.WindowChat
	vars := map[string]any{"message": userMessage}
	if c.mode == ModeQuery {
		name, window = prompts.QueryChat, conversations.WindowQuery
		vars["chart_analysis"] = chartAnalysis(s)
		vars["dasha_analysis"] = analysisText(s.DashaData)
		vars["transits"] = prompts.TransitText()
		if s.BirthDetails != nil {
			vars["today_date"] = s.BirthDetails.TodayDate
		}
	} else if s.AnalysisComplete {
		vars["analysis_context"] = s.AnalysisContext
	}

	msgs, err := prompts.Messages(ctx, name, vars, c.mm.History(s.Messages, window))
	if err != nil {
		return "", err
	}
	return generateText(ctx, c.llm, s, msgs)
}
