// Package web provides the embedded web UI for browsing stored expressions.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/exprtk/pkg/config"
	"github.com/lemonberrylabs/exprtk/pkg/store"
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	cfg     *config.Config
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler. A nil cfg uses config.Default().
func New(s *store.Store, cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{
		store: s,
		cfg:   cfg,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"truncate":   truncate,
			"countLines": countLines,
			"tokenClass": tokenClass,
			"join":       strings.Join,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout alone so define blocks don't clash.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/expressions/:name", h.expressionDetail)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Expressions []store.Expression
}

type expressionDetailContent struct {
	Expression store.Expression
	Tokens     []token.Located
	LexError   *tokenize.LexError
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	exprs := h.store.List()
	sort.SliceStable(exprs, func(i, j int) bool {
		return exprs[i].UpdateTime.After(exprs[j].UpdateTime)
	})
	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Expressions: exprs,
	})
}

func (h *Handler) expressionDetail(c *fiber.Ctx) error {
	name := c.Params("name")
	e, err := h.store.Get(name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Expression '%s' not found", name),
		})
	}

	content := expressionDetailContent{Expression: e}
	tz := tokenize.New(e.Source, tokenize.TriviaOptions(h.cfg.Tokenizer.EmitWhitespace, h.cfg.Tokenizer.EmitComments)...)
	for tok, err := range tz.All() {
		if err != nil {
			if !errors.As(err, &content.LexError) {
				return err
			}
			break
		}
		content.Tokens = append(content.Tokens, tz.Source().Locate(tok))
	}

	return h.render(c, "expression.html", "dashboard", content)
}

// --- Template Helpers ---

// tokenClass is the CSS class a token of the given kind is highlighted with.
func tokenClass(kind string) string {
	return "tok-" + strings.ToLower(kind)
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
