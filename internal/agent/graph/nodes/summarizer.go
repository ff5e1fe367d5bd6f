package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/astroguru-core/server/internal/agent/graph/prompts"
	"github.com/astroguru-core/server/internal/agent/model"
)

const summaryWordTarget = "800-1200"

// Summarizer condenses every artifact into the final report and marks the
// analysis complete.
type Summarizer struct {
	llm   LLM
	civil model.CivilTime
}

func NewSummarizer(llm LLM, civil model.CivilTime) *Summarizer {
	return &Summarizer{llm: llm, civil: civil}
}

func (m *Summarizer) Name() string { return model.StageSummarizer }

func (m *Summarizer) Run(ctx context.Context, s model.ConversationState) (model.ConversationState, model.Transition, error) {
	if owner := firstMissing(&s, model.StageRecommendation); owner != "" {
		return fail(s, owner, stageError(model.StageSummarizer, "missing_"+owner, nil, "upstream artifact missing", "owner", owner))
	}

	vars := prompts.BirthVars(s.BirthDetails, m.civil)
	vars["location"] = locationLabel(s.LocationData)
	vars["chart_analysis"] = chartAnalysis(&s)
	vars["dasha_analysis"] = analysisText(s.DashaData)
	vars["goal_analysis"] = analysisText(s.GoalAnalysisData)
	vars["recommendations"] = analysisText(s.RecommendationData)
	vars["word_target"] = summaryWordTarget

	msgs, err := prompts.Messages(ctx, prompts.Summarizer, vars, nil)
	if err != nil {
		return s, model.Transition{}, err
	}
	summary, err := generateText(ctx, m.llm, &s, msgs)
	if err == nil && summary == "" {
		err = errEmptyReply
	}
	if err != nil {
		return fail(s, model.StageSummarizer, stageError(model.StageSummarizer, "summary_llm", err, "summary generation failed"))
	}

	s.Summary = summary
	s.AnalysisContext = AnalysisContext(*s.BirthDetails, summary)
	s.AnalysisComplete = true
	s.Collecting = false
	s.Error = ""
	return s, model.Finish(), nil
}

// AnalysisContext is the text every later chat turn is grounded on.
func AnalysisContext(b model.BirthDetails, summary string) string {
	var sb strings.Builder
	sb.WriteString("Birth Details:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", b.Name)
	fmt.Fprintf(&sb, "- Date of Birth: %s\n", b.DateOfBirth)
	fmt.Fprintf(&sb, "- Time of Birth: %s\n", b.TimeOfBirth)
	fmt.Fprintf(&sb, "- Place: %s\n\n", b.PlaceOfBirth)
	sb.WriteString(summary)
	return sb.String()
}

func locationLabel(l *model.LocationData) string {
	if l == nil {
		return "N/A"
	}
	name := l.PlaceName
	if name == "" {
		name = strings.Join(nonEmpty(l.City, l.State, l.Country), ", ")
	}
	return fmt.Sprintf("%s (%.4f, %.4f)", name, l.Latitude, l.Longitude)
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
