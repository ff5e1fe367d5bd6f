package model

import "time"

// ================ Config ================

// ModelSettings are the sampling parameters of one LLM role.
type ModelSettings struct {
	Model          string
	Temperature    float32
	MaxTokens      int
	ThinkingBudget int32
}

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"10"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.1"`
}

func (c RouterModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

type ConversationModelConfig struct {
	Model          string  `envconfig:"CONVERSATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"CONVERSATION_MAX_TOKENS" default:"8192"`
	Temperature    float32 `envconfig:"CONVERSATION_TEMPERATURE" default:"0.2"`
	ThinkingBudget int32   `envconfig:"CONVERSATION_THINKING_BUDGET" default:"1024"`
}

func (c ConversationModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens, ThinkingBudget: c.ThinkingBudget}
}

type LocationModelConfig struct {
	Model         string  `envconfig:"LOCATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens     int     `envconfig:"LOCATION_MAX_TOKENS" default:"500"`
	Temperature   float32 `envconfig:"LOCATION_TEMPERATURE" default:"0.1"`
	MaxToolRounds int     `envconfig:"LOCATION_MAX_TOOL_ROUNDS" default:"3"`
}

func (c LocationModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

type AnalysisModelConfig struct {
	Model          string  `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"ANALYSIS_MAX_TOKENS" default:"8192"`
	Temperature    float32 `envconfig:"ANALYSIS_TEMPERATURE" default:"0.2"`
	ThinkingBudget int32   `envconfig:"ANALYSIS_THINKING_BUDGET" default:"2000"`
}

func (c AnalysisModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens, ThinkingBudget: c.ThinkingBudget}
}

// ConversationConfig bounds the context windows and the query-question allowance.
type ConversationConfig struct {
	MainWindow        int `envconfig:"CONVERSATION_MAIN_WINDOW" default:"10"`
	ChatWindow        int `envconfig:"CONVERSATION_CHAT_WINDOW" default:"10"`
	QueryWindow       int `envconfig:"CONVERSATION_QUERY_WINDOW" default:"20"`
	QueryMaxQuestions int `envconfig:"CONVERSATION_QUERY_MAX_QUESTIONS" default:"3"`
}

type GeocoderConfig struct {
	BaseURL     string        `envconfig:"GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent   string        `envconfig:"GEOCODER_USER_AGENT" default:"astroguru-core/1.0"`
	MinInterval time.Duration `envconfig:"GEOCODER_MIN_INTERVAL" default:"1s"`
	RetryDelay  time.Duration `envconfig:"GEOCODER_RETRY_DELAY" default:"2s"`
	Timeout     time.Duration `envconfig:"GEOCODER_TIMEOUT" default:"10s"`
	CacheTTL    time.Duration `envconfig:"GEOCODER_CACHE_TTL" default:"24h"`
}

type ChartEngineConfig struct {
	URL     string        `envconfig:"CHART_ENGINE_URL" default:"http://localhost:8090"`
	Timeout time.Duration `envconfig:"CHART_ENGINE_TIMEOUT" default:"30s"`
}

type ServerConfig struct {
	Addr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"180s"`
	OrderWorkers int           `envconfig:"ORDER_WORKERS" default:"4"`
}
