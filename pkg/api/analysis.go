package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/exprtk/pkg/dataset"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
	"github.com/lemonberrylabs/exprtk/pkg/types"
)

type tokenizeRequest struct {
	Source         string `json:"source"`
	EmitWhitespace *bool  `json:"emitWhitespace"`
	EmitComments   *bool  `json:"emitComments"`
}

// boolOr returns *p, or def when p is nil.
func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	var req tokenizeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	src := token.NewSource(req.Source)
	if limit := s.cfg.MaxExpressionLength; limit > 0 && src.Len() > limit {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("source exceeds maximum length of %d characters", limit))
	}

	opts := tokenize.TriviaOptions(
		boolOr(req.EmitWhitespace, s.cfg.Tokenizer.EmitWhitespace),
		boolOr(req.EmitComments, s.cfg.Tokenizer.EmitComments))
	tokens := make([]token.Located, 0)
	for tok, err := range tokenize.NewFromSource(src, opts...).All() {
		if err != nil {
			return invalidSource(c, err)
		}
		tokens = append(tokens, src.Locate(tok))
	}

	return c.JSON(fiber.Map{
		"tokens": tokens,
	})
}

type validateRequest struct {
	Expressions json.RawMessage   `json:"expressions"`
	Schema      map[string]string `json:"schema"`
}

func (s *Server) validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	defs, err := dataset.ParseDefinitions(req.Expressions)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}
	schema, err := dataset.ParseSchema(req.Schema)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}

	results := dataset.Validate(defs, schema, s.funcs, s.cfg.MaxExpressionLength)
	return c.JSON(fiber.Map{
		"valid":       dataset.AllValid(results),
		"expressions": results,
	})
}

type computeRequest struct {
	Expressions []dataset.Definition `json:"expressions"`
	Rows        json.RawMessage      `json:"rows"`
}

type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) compute(c *fiber.Ctx) error {
	var req computeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Rows) == 0 {
		req.Rows = json.RawMessage("[]")
	}

	table, err := dataset.FromJSON(req.Rows)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	}

	out, err := dataset.Compute(table, req.Expressions, s.funcs, s.cfg.MaxExpressionLength)
	if err != nil {
		var cerr *dataset.ComputeError
		if errors.As(err, &cerr) && cerr.Row < 0 {
			return invalidSource(c, err)
		}
		return rowError(c, err)
	}

	columns := make([]columnJSON, len(out.Columns))
	for i, col := range out.Columns {
		columns[i] = columnJSON{Name: col.Name, Type: col.Type.String()}
	}
	return c.JSON(fiber.Map{
		"columns": columns,
		"rows":    out,
	})
}

// rowError reports an evaluation failure on one row. The failing column,
// row and the error's tags are included when known.
func rowError(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"code":    fiber.StatusUnprocessableEntity,
		"message": err.Error(),
		"status":  "FAILED_PRECONDITION",
	}
	var cerr *dataset.ComputeError
	if errors.As(err, &cerr) {
		body["column"] = cerr.Column
		body["row"] = cerr.Row
	}
	var evalErr *types.EvalError
	if errors.As(err, &evalErr) {
		body["cause"] = evalErr.ToValue()
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": body})
}

func (s *Server) listFunctions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"functions": s.funcs.Names(),
		"keywords":  expr.Keywords(),
	})
}
