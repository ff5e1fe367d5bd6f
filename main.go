package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/do"

	"github.com/astroguru-core/server/internal/agent/graph"
	"github.com/astroguru-core/server/internal/agent/intent"
	"github.com/astroguru-core/server/internal/agent/model"
	"github.com/astroguru-core/server/internal/agent/order"
	"github.com/astroguru-core/server/internal/agent/repo"
	"github.com/astroguru-core/server/internal/agent/session"
	"github.com/astroguru-core/server/internal/clients/chartengine"
	"github.com/astroguru-core/server/internal/clients/nominatim"
	"github.com/astroguru-core/server/internal/core"
	"github.com/astroguru-core/server/internal/server"
	logx "github.com/astroguru-core/server/pkg/logger"
	pkgredis "github.com/astroguru-core/server/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Server model.ServerConfig
	Redis  pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Router       model.RouterModelConfig
	Conversation model.ConversationModelConfig
	Location     model.LocationModelConfig
	Analysis     model.AnalysisModelConfig
	Windows      model.ConversationConfig
	Civil        model.CivilTime

	// Collaborators
	Geocoder    model.GeocoderConfig
	ChartEngine model.ChartEngineConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	di := do.New()
	defer func() {
		if err := di.Shutdown(); err != nil {
			logx.Error().Err(err).Msg("Failed to shut down services")
		}
	}()
	do.ProvideValue(di, &cfg)

	var cache model.GeocodeCache = repo.NewMemoryGeocodeCache()
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		cache = repo.NewRedisGeocodeCache(rdb)
		logx.Info().Msg("Connected to Redis, sharing geocode cache")
	}
	do.ProvideValue(di, cache)
	do.ProvideValue(di, repo.NewMemorySessionStore())

	do.Provide(di, provideGraphs(ctx))
	do.Provide(di, provideSessions)
	do.Provide(di, provideOrders)
	do.Provide(di, provideServer)

	srv := do.MustInvoke[*server.Server](di)
	go func() {
		if err := srv.Listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func provideGraphs(ctx context.Context) do.Provider[*graph.Graphs] {
	return func(i *do.Injector) (*graph.Graphs, error) {
		cfg := do.MustInvoke[*AppConfig](i)
		return graph.BuildGraphs(ctx, graph.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Router:       cfg.Router,
			Conversation: cfg.Conversation,
			Location:     cfg.Location,
			Analysis:     cfg.Analysis,
			Windows:      cfg.Windows,
			Civil:        cfg.Civil,
			Geocoder:     nominatim.New(cfg.Geocoder, do.MustInvoke[model.GeocodeCache](i)),
			Engine:       chartengine.New(cfg.ChartEngine),
			Matcher:      intent.Default(),
		})
	}
}

func provideSessions(i *do.Injector) (*session.Service, error) {
	return session.NewService(
		do.MustInvoke[*repo.MemorySessionStore](i),
		repo.NewKeyedLocker(),
		do.MustInvoke[*graph.Graphs](i),
	), nil
}

func provideOrders(i *do.Injector) (*order.Runner, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	return order.NewRunner(
		do.MustInvoke[*repo.MemorySessionStore](i),
		do.MustInvoke[*graph.Graphs](i),
		cfg.Civil,
		cfg.Server.OrderWorkers,
	), nil
}

func provideServer(i *do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	return server.New(cfg.Server, do.MustInvoke[*session.Service](i), do.MustInvoke[*order.Runner](i)), nil
}
