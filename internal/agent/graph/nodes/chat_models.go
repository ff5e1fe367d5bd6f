package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	Router       model.RouterModelConfig
	Conversation model.ConversationModelConfig
	Location     model.LocationModelConfig
	Analysis     model.AnalysisModelConfig
	// LocationTools are bound to the location model only.
	LocationTools []*schema.ToolInfo
}

// ChatModels holds one model per role. Each role gets its own instance so
// binding tools to the location model does not leak into the others.
type ChatModels struct {
	Router       LLM
	Conversation LLM
	Location     LLM
	Analysis     LLM
}

// NewChatModels creates the Gemini chat models for every role.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	router, err := newGeminiModel(ctx, client, config.Router.Settings())
	if err != nil {
		return nil, fmt.Errorf("error creating router model: %w", err)
	}
	conversation, err := newGeminiModel(ctx, client, config.Conversation.Settings())
	if err != nil {
		return nil, fmt.Errorf("error creating conversation model: %w", err)
	}
	location, err := newGeminiModel(ctx, client, config.Location.Settings())
	if err != nil {
		return nil, fmt.Errorf("error creating location model: %w", err)
	}
	analysis, err := newGeminiModel(ctx, client, config.Analysis.Settings())
	if err != nil {
		return nil, fmt.Errorf("error creating analysis model: %w", err)
	}

	if len(config.LocationTools) > 0 {
		if err := location.BindTools(config.LocationTools); err != nil {
			logx.Error().Err(err).Msg("Failed to bind tools")
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		logx.Debug().Int("tools", len(config.LocationTools)).Msg("Successfully bound tools to location model")
	}

	return &ChatModels{
		Router:       LLM{Model: router, Settings: config.Router.Settings()},
		Conversation: LLM{Model: conversation, Settings: config.Conversation.Settings()},
		Location:     LLM{Model: location, Settings: config.Location.Settings()},
		Analysis:     LLM{Model: analysis, Settings: config.Analysis.Settings()},
	}, nil
}

func newGeminiModel(ctx context.Context, client *genai.Client, s model.ModelSettings) (*gemini.ChatModel, error) {
	cfg := &gemini.Config{
		Client:      client,
		Model:       s.Model,
		Temperature: &s.Temperature,
		MaxTokens:   &s.MaxTokens,
	}
	if s.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(s.ThinkingBudget),
		}
	}
	cm, err := gemini.NewChatModel(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Str("model", s.Model).Msg("Error creating Gemini chat model")
		return nil, err
	}
	return cm, nil
}
