package nodes

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// LLM pairs a chat model with the sampling settings it is called with.
type LLM struct {
	Model    einomodel.BaseChatModel
	Settings model.ModelSettings
}

func (l LLM) options() []einomodel.Option {
	opts := []einomodel.Option{einomodel.WithTemperature(l.Settings.Temperature)}
	if l.Settings.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(l.Settings.MaxTokens))
	}
	return opts
}

// generate calls the model with the role's settings and charges the token
// usage to the session.
func generate(ctx context.Context, l LLM, s *model.ConversationState, msgs []*schema.Message) (*schema.Message, error) {
	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.model", l.Settings.Model),
		attribute.Int("llm.messages", len(msgs)),
	))
	defer span.End()

	out, err := l.Model.Generate(ctx, msgs, l.options()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return nil, errx.WrapUpstream("llm", 0, err)
	}
	if out == nil {
		out = schema.AssistantMessage("", nil)
	}
	recordUsage(ctx, l.Settings.Model, out, s)
	return out, nil
}

// generateText is generate for stages that only want the reply text.
func generateText(ctx context.Context, l LLM, s *model.ConversationState, msgs []*schema.Message) (string, error) {
	out, err := generate(ctx, l, s, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}

// recordUsage computes and logs usage cost and accumulates it into the session.
func recordUsage(ctx context.Context, modelName string, out *schema.Message, s *model.ConversationState) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	logx.Ctx(ctx).Debug().
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	s.UsageCostUSD += totalC
}
