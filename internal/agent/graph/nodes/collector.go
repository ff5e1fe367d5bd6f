package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/astroguru-core/server/internal/agent/graph/conversations"
	"github.com/astroguru-core/server/internal/agent/graph/parsers"
	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// CollectorApology is shown when the collection model cannot be reached.
const CollectorApology = "I apologize, but I encountered an error. Could you please provide your birth details?"

// CollectorAck stands in for a reply that carried nothing but the payload.
const CollectorAck = "Thank you! Let me note that down."

// Collector gathers birth details conversationally until a complete record
// can be extracted from the model's reply.
type Collector struct {
	llm   LLM
	mm    *conversations.MessagesManager
	civil model.CivilTime
	now   func() time.Time
}

func NewCollector(llm LLM, mm *conversations.MessagesManager, civil model.CivilTime) *Collector {
	return &Collector{llm: llm, mm: mm, civil: civil, now: time.Now}
}

func (c *Collector) Name() string { return model.StageMain }

func (c *Collector) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	if s.BirthDetails != nil {
		s.Collecting = false
		return s, model.Advance(), nil
	}
	userMessage := strings.TrimSpace(s.UserMessage)
	if userMessage == "" {
		return s, model.AwaitInput("no message"), nil
	}

	reply := CollectorApology
	msgs, err := prompts.Messages(ctx, prompts.Collector, map[string]any{
		"message":    userMessage,
		"civil_zone": c.civil.Zone,
	}, c.mm.History(s.Messages, conversations.WindowMain))
	if err == nil {
		var text string
		text, err = generateText(ctx, c.llm, &s, msgs)
		if err == nil && text != "" {
			reply = text
		}
	}
	if err != nil {
		s.Error = stageError(model.StageMain, "collector_llm", err, "detail collection call failed").Error()
		logx.Ctx(ctx).Warn().Err(err).Msg("collector call failed")
	}

	s.AppendTurns(userMessage, visibleReply(reply))
	s.UserMessage = ""
	s.Collecting = true

	details, strategy := parsers.ExtractBirthDetails(reply)
	if details == nil {
		return s, model.AwaitInput("collecting"), nil
	}
	if lat, lon, ok := parsers.ParseInlineCoordinates(userMessage); ok && !details.HasCoordinates() {
		*details = details.WithLocation(lat, lon, "")
	}
	details.TodayDate = c.civil.Today(c.now())

	if bad := details.InvalidFields(); len(bad) > 0 {
		logx.Ctx(ctx).Debug().Strs("invalid_fields", bad).Str("strategy", string(strategy)).Msg("birth details incomplete")
		return s, model.AwaitInput("incomplete details"), nil
	}

	logx.Ctx(ctx).Info().Str("strategy", string(strategy)).Msg("birth details collected")
	s.BirthDetails = details
	s.Collecting = false
	s.Error = ""
	return s, model.Advance(), nil
}

// visibleReply drops the machine-readable payload from what the user sees.
func visibleReply(reply string) string {
	if text := parsers.StripBirthDetails(reply); text != "" {
		return text
	}
	return CollectorAck
}
