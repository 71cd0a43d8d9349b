// Package api implements the HTTP API for tokenizing, validating and
// computing expressions, and for managing stored expressions.
package api

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/lemonberrylabs/exprtk/pkg/config"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/stdlib"
	"github.com/lemonberrylabs/exprtk/pkg/store"
)

// Server is the HTTP API server.
type Server struct {
	app   *fiber.App
	store *store.Store
	funcs *stdlib.Registry
	cfg   *config.Config
}

// New creates a new API server. A nil cfg uses config.Default().
func New(s *store.Store, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	srv := &Server{
		store: s,
		funcs: stdlib.NewRegistry(),
		cfg:   cfg,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${status} ${latency} ${method} ${path}\n",
		TimeFormat: "2006/01/02 15:04:05",
	}))

	// Analysis API
	app.Post("/v1/tokenize", srv.tokenize)
	app.Post("/v1/validate", srv.validate)
	app.Post("/v1/compute", srv.compute)
	app.Get("/v1/functions", srv.listFunctions)

	// Expressions API
	app.Post("/v1/expressions", srv.createExpression)
	app.Get("/v1/expressions", srv.listExpressions)
	app.Get("/v1/expressions/:name", srv.getExpression)
	app.Patch("/v1/expressions/:name", srv.updateExpression)
	app.Delete("/v1/expressions/:name", srv.deleteExpression)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves HTTP requests on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// Functions returns the function registry expressions are evaluated with.
func (s *Server) Functions() *stdlib.Registry {
	return s.funcs
}

// --- Directory Loading ---

var validExpressionID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// LoadDir loads every .yaml, .yml and .json definition file in dir into the
// store. Invalid files and definitions are logged and skipped.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading expressions directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}

		defs, err := config.LoadDefinitions(data)
		if err != nil {
			log.Printf("Warning: could not load %q: %v", name, err)
			continue
		}

		for _, d := range defs {
			if !validExpressionID.MatchString(d.Name) {
				log.Printf("Warning: skipping %q in %s: invalid expression name", d.Name, name)
				continue
			}
			prog, err := s.parse(d.Expression)
			if err != nil {
				log.Printf("Warning: could not parse %q in %s: %v", d.Name, name, err)
				continue
			}
			if _, err := s.store.Create(d.Name, d.Expression, d.Description, expr.Columns(prog)); err != nil {
				log.Printf("Warning: could not store %q from %s: %v", d.Name, name, err)
				continue
			}
			loaded++
			log.Printf("Loaded expression %q from %s", d.Name, name)
		}
	}

	log.Printf("Loaded %d expression(s) from %s", loaded, dir)
	return nil
}

// --- Helpers ---

func (s *Server) parse(source string) (*expr.Program, error) {
	return expr.ParseExpressionLimit(source, s.cfg.MaxExpressionLength)
}

// errorJSON writes the standard error envelope.
func errorJSON(c *fiber.Ctx, code int, status, msg string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
			"status":  status,
		},
	})
}

// invalidSource reports a lexing or parsing failure, with its position when
// one is known.
func invalidSource(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"code":    fiber.StatusBadRequest,
		"message": err.Error(),
		"status":  "INVALID_ARGUMENT",
	}
	if pos, ok := expr.ErrorPosition(err); ok {
		body["position"] = pos
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": body})
}

// storeError maps store sentinels to HTTP statuses.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return errorJSON(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	}
	return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
}
