package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

var tracer = otel.Tracer("github.com/astroguru-core/server/internal/agent/graph/nodes")

// Stage is one node of the workflow graph. Run receives a private copy of the
// state and returns the next state with exactly one transition; the graph
// decides where that transition leads. A returned error aborts the whole run
// and is reserved for infrastructure failures.
type Stage interface {
	Name() string
	Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error)
}

// NewStageLambda adapts a Stage to an eino lambda node over the shared state.
func NewStageLambda(stage Stage) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		return RunStage(ctx, stage, s)
	})
}

// RunStage executes stage against s and records the transition on the result.
func RunStage(ctx context.Context, stage Stage, s *model.ConversationState) (*model.ConversationState, error) {
	name := stage.Name()
	ctx, span := tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("session.id", s.SessionID),
		attribute.String("stage", name),
	))
	defer span.End()
	ctx = logx.WithContext(ctx, map[string]string{"session_id": s.SessionID, "stage": name})

	in := *s.Clone()
	in.Pending = model.Transition{}

	started := time.Now()
	next, tr, err := stage.Run(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stage failed")
		logx.Ctx(ctx).Error().Err(err).Msg("stage failed")
		return nil, err
	}

	if tr.Kind == model.TransitionRetreat {
		next.Rewind(tr.Target)
		logx.Ctx(ctx).Warn().
			Str("target", tr.Target).
			Str("reason", tr.Reason).
			Str("error", next.Error).
			Msg("stage retreated")
	}

	next.CurrentStep = name
	next.Pending = tr
	next.Visited = append(next.Visited, name)

	span.SetAttributes(attribute.String("transition", tr.String()))
	logx.Ctx(ctx).Debug().
		Str("transition", tr.String()).
		Str("reason", tr.Reason).
		Dur("elapsed", time.Since(started)).
		Msg("stage done")

	*s = next
	return s, nil
}

// stageError builds the advisory error recorded on the state when a stage
// cannot produce its artifact.
func stageError(stage, code string, err error, msg string, kv ...any) error {
	b := oops.In(stage).Code(code)
	if len(kv) > 0 {
		b = b.With(kv...)
	}
	if err == nil {
		return b.Errorf("%s", msg)
	}
	return b.Wrapf(err, "%s", msg)
}

// fail records err on the state and retreats to target.
func fail(s model.ConversationState, target string, err error) (model.ConversationState, model.Transition, error) {
	s.Error = err.Error()
	code := target
	if o, ok := oops.AsOops(err); ok && o.Code() != "" {
		code = o.Code()
	}
	return s, model.Retreat(target, code), nil
}
