// Package server exposes the conversational entry point over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
)

// Sessions is the conversational side of the service.
type Sessions interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	Query(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	Snapshot(ctx context.Context, sessionID string) (*model.ConversationState, error)
}

// Orders runs order-seeded analyses.
type Orders interface {
	Run(ctx context.Context, seed model.OrderSeed) model.OrderResult
	RunBatch(ctx context.Context, seeds []model.OrderSeed) []model.OrderResult
}

type Server struct {
	app      *fiber.App
	addr     string
	sessions Sessions
	orders   Orders
}

func New(cfg model.ServerConfig, sessions Sessions, orders Orders) *Server {
	s := &Server{
		addr:     cfg.Addr,
		sessions: sessions,
		orders:   orders,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "astroguru-core",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)
	s.app.Post("/chat", s.chat)
	s.app.Post("/query", s.query)
	s.app.Get("/sessions/:id", s.snapshot)
	s.app.Post("/orders", s.order)
	s.app.Post("/orders/batch", s.orderBatch)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	logx.Info().Str("addr", s.addr).Msg("HTTP server listening")
	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	status, msg := errx.StatusOf(err), errx.PublicMessage(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status, msg = fe.Code, fe.Message
	}
	if status >= fiber.StatusInternalServerError {
		logx.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(errorBody{Error: msg})
}

func requestLogger(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	logx.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("elapsed", time.Since(started)).
		Msg("request")
	return err
}
