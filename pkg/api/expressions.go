package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/store"
)

type expressionRequest struct {
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createExpression(c *fiber.Ctx) error {
	name := c.Query("expressionId")
	if name == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "expressionId query parameter is required")
	}
	if !validExpressionID.MatchString(name) {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid expressionId %q", name))
	}

	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "source is required")
	}

	// Validate by parsing the expression
	prog, err := s.parse(req.Source)
	if err != nil {
		return invalidSource(c, err)
	}

	e, err := s.store.Create(name, req.Source, req.Description, expr.Columns(prog))
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(expressionToJSON(e))
}

func (s *Server) getExpression(c *fiber.Ctx) error {
	e, err := s.store.Get(c.Params("name"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(expressionToJSON(e))
}

func (s *Server) listExpressions(c *fiber.Ctx) error {
	exprs := s.store.List()

	items := make([]fiber.Map, len(exprs))
	for i, e := range exprs {
		items[i] = expressionToJSON(e)
	}

	return c.JSON(fiber.Map{
		"expressions": items,
	})
}

func (s *Server) updateExpression(c *fiber.Ctx) error {
	name := c.Params("name")

	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	current, err := s.store.Get(name)
	if err != nil {
		return storeError(c, err)
	}
	source := req.Source
	if source == "" {
		source = current.Source
	}

	prog, err := s.parse(source)
	if err != nil {
		return invalidSource(c, err)
	}

	e, err := s.store.Update(name, source, req.Description, expr.Columns(prog))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(expressionToJSON(e))
}

func (s *Server) deleteExpression(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("name")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{})
}

func expressionToJSON(e store.Expression) fiber.Map {
	return fiber.Map{
		"name":        e.Name,
		"uid":         e.UID,
		"description": e.Description,
		"source":      e.Source,
		"columns":     e.Columns,
		"revisionId":  e.RevisionID,
		"createTime":  e.CreateTime.Format(time.RFC3339),
		"updateTime":  e.UpdateTime.Format(time.RFC3339),
	}
}
