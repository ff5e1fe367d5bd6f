package model

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "default"

// ChatRequest is the conversational entry point input.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=8000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	// NewSession asks for a freshly generated session id.
	NewSession bool `json:"new_session,omitempty"`
}

// ChatResponse is what callers see after one graph run.
type ChatResponse struct {
	Response           string  `json:"response"`
	AnalysisComplete   bool    `json:"analysis_complete"`
	AwaitingInput      bool    `json:"awaiting_input"`
	Summary            string  `json:"summary,omitempty"`
	ChartAnalysis      string  `json:"chart_data_analysis,omitempty"`
	LifePeriodAnalysis string  `json:"dasha_analysis,omitempty"`
	GoalAnalysis       string  `json:"goal_analysis,omitempty"`
	Recommendations    string  `json:"recommendations,omitempty"`
	UsageCostUSD       float64 `json:"usage_cost_usd,omitempty"`
	SessionID          string  `json:"session_id"`
}

type OrderType string

const (
	OrderFullReport OrderType = "full_report"
	OrderQuery      OrderType = "query"
)

// OrderSeed starts an analysis run from a paid order instead of a conversation.
type OrderSeed struct {
	OrderID      string       `json:"order_id" validate:"required"`
	BirthDetails BirthDetails `json:"birth_details"`
	OrderType    OrderType    `json:"order_type" validate:"required,oneof=full_report query"`
	UserQuery    string       `json:"user_query,omitempty" validate:"required_if=OrderType query,max=8000"`
}

type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// OrderResult is handed back to the order/email subsystem.
type OrderResult struct {
	OrderID            string      `json:"order_id"`
	SessionID          string      `json:"session_id"`
	Status             OrderStatus `json:"status"`
	Summary            string      `json:"summary,omitempty"`
	ChartAnalysis      string      `json:"chart_analysis,omitempty"`
	LifePeriodAnalysis string      `json:"life_period_analysis,omitempty"`
	GoalAnalysis       string      `json:"goal_analysis,omitempty"`
	Recommendations    string      `json:"recommendations,omitempty"`
	Answer             string      `json:"answer,omitempty"`
	Error              string      `json:"error,omitempty"`
}
