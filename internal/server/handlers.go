package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
)

type orderBatch struct {
	Orders []model.OrderSeed `json:"orders" validate:"required,min=1,max=50"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) chat(c *fiber.Ctx) error {
	var req model.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	resp, err := s.sessions.Chat(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) query(c *fiber.Ctx) error {
	var req model.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	resp, err := s.sessions.Query(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) snapshot(c *fiber.Ctx) error {
	state, err := s.sessions.Snapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(state)
}

func (s *Server) order(c *fiber.Ctx) error {
	var seed model.OrderSeed
	if err := c.BodyParser(&seed); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	return c.JSON(s.orders.Run(c.UserContext(), seed))
}

func (s *Server) orderBatch(c *fiber.Ctx) error {
	var batch orderBatch
	if err := c.BodyParser(&batch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := model.Validator().Struct(batch); err != nil {
		return errx.Validation(err)
	}
	return c.JSON(fiber.Map{"results": s.orders.RunBatch(c.UserContext(), batch.Orders)})
}
