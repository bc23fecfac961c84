// Package web provides the embedded web UI for the calculator.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	calc    *calculator.App
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(calc *calculator.App) *Handler {
	return &Handler{
		calc: calc,
		funcMap: template.FuncMap{
			"timeAgo":      timeAgo,
			"formatTime":   formatTime,
			"formatNumber": expr.FormatNumber,
			"joinTokens":   joinTokens,
			"truncate":     truncate,
			"operators":    func() []expr.Operator { return expr.Operators },
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Parse per page so "content" blocks from different pages do not collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/evaluate", h.evaluate)
	app.Get("/ui/users/:id", h.userDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Users       []*userView
	TotalExprs  int
	FailedExprs int
	Counter     expr.Usage
	Help        string
	Error       string
	Expression  string
	UserID      string
}

type userView struct {
	*store.User
	LastExpression string
}

type userDetailContent struct {
	User    *store.User
	Records []store.Record
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	content, err := h.loadDashboard(c)
	if err != nil {
		return c.Status(500).SendString(err.Error())
	}
	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) loadDashboard(c *fiber.Ctx) (*dashboardContent, error) {
	users, err := h.calc.Repository().ListUsers(c.UserContext())
	if err != nil {
		return nil, err
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].UpdateTime.After(users[j].UpdateTime)
	})

	content := &dashboardContent{Counter: expr.NewUsage(), Help: calculator.Help()}
	for _, u := range users {
		v := &userView{User: u}
		if n := len(u.Expressions); n > 0 {
			v.LastExpression = joinTokens(u.Expressions[n-1].Expression)
		}
		content.Users = append(content.Users, v)
		content.TotalExprs += len(u.Expressions)
		for _, rec := range u.Expressions {
			if rec.Failed() {
				content.FailedExprs++
			}
		}
		for op, n := range u.Counter {
			content.Counter[op] += n
		}
	}
	return content, nil
}

// evaluate handles the dashboard form. Success redirects to the user's page;
// a rejected expression re-renders the dashboard with the error.
func (h *Handler) evaluate(c *fiber.Ctx) error {
	expression := c.FormValue("expression")
	userID := c.FormValue("user_id")

	_, err := h.calc.Execute(c.UserContext(), expression, userID)
	if err == nil {
		return c.Redirect("/ui/users/" + strings.TrimSpace(userID))
	}

	content, lerr := h.loadDashboard(c)
	if lerr != nil {
		return c.Status(500).SendString(lerr.Error())
	}
	content.Error = err.Error()
	content.Expression = expression
	content.UserID = userID
	c.Status(fiber.StatusBadRequest)
	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) userDetail(c *fiber.Ctx) error {
	id := c.Params("id")

	u, err := h.calc.History(c.UserContext(), id)
	if err != nil {
		msg := err.Error()
		if types.IsNotFound(err) {
			msg = fmt.Sprintf("User '%s' not found", id)
		}
		c.Status(fiber.StatusNotFound)
		return h.render(c, "not_found.html", "", notFoundContent{Message: msg})
	}

	records := make([]store.Record, len(u.Expressions))
	for i, rec := range u.Expressions {
		records[len(records)-1-i] = rec
	}

	return h.render(c, "user_detail.html", "users", userDetailContent{
		User:    u,
		Records: records,
	})
}

// --- Template Helpers ---

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
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
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
