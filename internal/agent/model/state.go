package model

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored conversation message.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LocationData is the resolved birth place. Timezone is always the civil reference zone;
// ReportedTimezone keeps whatever the resolver suggested before the override.
type LocationData struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	ReportedTimezone string  `json:"reported_timezone,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Country          string  `json:"country,omitempty"`
}

// ChartData keeps the engine output even when the narrative could not be generated.
type ChartData struct {
	Chart       *Chart    `json:"chart"`
	Analysis    string    `json:"analysis,omitempty"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AnalysisData is the output of one analytical LLM stage.
type AnalysisData struct {
	Analysis    string    `json:"analysis"`
	Model       string    `json:"model,omitempty"`
	InputChars  int       `json:"input_chars"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ConversationState is the per-session record threaded through every stage.
type ConversationState struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message,omitempty"`
	Messages    []Turn `json:"messages"`

	BirthDetails *BirthDetails `json:"birth_details,omitempty"`
	// Collecting is set while the detail collector is still asking for birth details.
	Collecting bool `json:"collecting,omitempty"`

	LocationData       *LocationData `json:"location_data,omitempty"`
	ChartData          *ChartData    `json:"chart_data,omitempty"`
	DashaData          *AnalysisData `json:"dasha_data,omitempty"`
	GoalAnalysisData   *AnalysisData `json:"goal_analysis_data,omitempty"`
	RecommendationData *AnalysisData `json:"recommendation_data,omitempty"`
	Summary            string        `json:"summary,omitempty"`
	AnalysisContext    string        `json:"analysis_context,omitempty"`

	CurrentStep      string  `json:"current_step,omitempty"`
	AnalysisComplete bool    `json:"analysis_complete"`
	QueryQuestions   int     `json:"query_questions,omitempty"`
	UsageCostUSD     float64 `json:"usage_cost_usd,omitempty"`
	Error            string  `json:"error,omitempty"`

	// Pending is the transition returned by the last stage; only the graph runner reads it.
	Pending Transition `json:"-"`
	// Visited records the stages executed during the current run.
	Visited []string `json:"-"`
}

func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Messages:  []Turn{},
	}
}

// Clone copies the record. Artifacts are shared: stages replace them, never mutate them.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Visited = slices.Clone(s.Visited)
	return &c
}

// AppendTurns records one user turn and one assistant turn.
func (s *ConversationState) AppendTurns(user, assistant string) {
	s.Messages = append(slices.Clip(s.Messages),
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleAssistant, Content: assistant},
	)
}

// LastAssistantSince returns the newest assistant turn at index >= from.
func (s *ConversationState) LastAssistantSince(from int) (string, bool) {
	for i := len(s.Messages) - 1; i >= from && i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

// Rewind clears the artifact owned by stage and everything downstream of it,
// so the pipeline resumes at stage on a later run.
func (s *ConversationState) Rewind(stage string) {
	from := PipelineIndex(stage)
	if from < 0 {
		return
	}
	for _, owner := range analysisPipeline[from:] {
		switch owner {
		case StageMain:
			s.BirthDetails = nil
			s.Collecting = true
		case StageLocation:
			s.LocationData = nil
		case StageChart:
			s.ChartData = nil
		case StageDasha:
			s.DashaData = nil
		case StageGoalAnalysis:
			s.GoalAnalysisData = nil
		case StageRecommendation:
			s.RecommendationData = nil
		case StageSummarizer:
			s.Summary = ""
			s.AnalysisContext = ""
		}
	}
	s.AnalysisComplete = false
}

// ResetAnalysis starts a fresh analysis while keeping the conversation history.
func (s *ConversationState) ResetAnalysis() {
	s.Rewind(StageMain)
	s.Collecting = false
	s.QueryQuestions = 0
	s.Error = ""
}

// HasCompleteBundle reports whether every artifact of a finished analysis is present.
func (s *ConversationState) HasCompleteBundle() bool {
	return s.ChartData != nil && s.DashaData != nil && s.GoalAnalysisData != nil &&
		s.RecommendationData != nil && s.Summary != ""
}

// CheckInvariants verifies the structural guarantees every persisted state must satisfy.
func (s *ConversationState) CheckInvariants() error {
	var errs []error
	if s.BirthDetails != nil {
		if bad := s.BirthDetails.InvalidFields(); len(bad) > 0 {
			errs = append(errs, fmt.Errorf("birth details incomplete: %v", bad))
		}
	}
	if s.AnalysisComplete && !s.HasCompleteBundle() {
		errs = append(errs, errors.New("analysis marked complete without the full artifact bundle"))
	}
	if len(s.Messages)%2 != 0 {
		errs = append(errs, fmt.Errorf("unpaired conversation turns: %d", len(s.Messages)))
	}
	return errors.Join(errs...)
}
