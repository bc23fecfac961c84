// Package api implements the REST API for the calculator.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// Options tunes the HTTP server.
type Options struct {
	LogRequests bool
}

// Server is the REST API server.
type Server struct {
	app         *fiber.App
	calc        *calculator.App
	logRequests bool
}

// New creates a new API server.
func New(calc *calculator.App, opts Options) *Server {
	srv := &Server{calc: calc, logRequests: opts.LogRequests}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	if opts.LogRequests {
		app.Use(logger.New())
	}

	app.Post("/execute", srv.execute)
	app.Get("/most-used-operator/:user_id", srv.mostUsedOperator)
	app.Get("/help", srv.help)
	app.Get("/users", srv.listUsers)
	app.Get("/users/:user_id/expressions", srv.listExpressions)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Handlers ---

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type executeRequest struct {
	Expression flexString `json:"expression"`
	UserID     flexString `json:"user_id"`
}

// execute accepts a JSON body, form fields or query parameters.
func (s *Server) execute(c *fiber.Ctx) error {
	var req executeRequest
	if c.Is("json") && len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error())
		}
	}
	if req.Expression == "" {
		req.Expression = flexString(c.FormValue("expression", c.Query("expression")))
	}
	if req.UserID == "" {
		req.UserID = flexString(c.FormValue("user_id", c.Query("user_id")))
	}

	value, err := s.calc.Execute(c.UserContext(), string(req.Expression), string(req.UserID))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"value": number(value)})
}

func (s *Server) mostUsedOperator(c *fiber.Ctx) error {
	op, err := s.calc.MostUsedOperator(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"most-used-operator": string(op)})
}

func (s *Server) help(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"help": calculator.Help()})
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	users, err := s.calc.Repository().ListUsers(c.UserContext())
	if err != nil {
		return s.errorResponse(c, err)
	}

	items := make([]fiber.Map, len(users))
	for i, u := range users {
		items[i] = userToJSON(u)
	}
	return c.JSON(fiber.Map{"users": items})
}

func (s *Server) listExpressions(c *fiber.Ctx) error {
	u, err := s.calc.History(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	items := make([]fiber.Map, len(u.Expressions))
	for i, rec := range u.Expressions {
		items[i] = recordToJSON(rec)
	}
	return c.JSON(fiber.Map{
		"userId":      u.ID,
		"expressions": items,
	})
}

// --- Helpers ---

// errorResponse maps calculator errors onto the JSON error envelope.
func (s *Server) errorResponse(c *fiber.Ctx, err error) error {
	var ce *types.CalcError
	if !errors.As(err, &ce) {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	if s.logRequests {
		log.Printf("%s %s rejected: %s", c.Method(), c.Path(), ce.Describe())
	}
	if ce.HasTag(types.TagNotFound) {
		return errorJSON(c, int(ce.Code), "NOT_FOUND", err.Error())
	}
	return errorJSON(c, int(ce.Code), "INVALID_ARGUMENT", err.Error())
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    status,
			"message": message,
			"status":  code,
		},
	})
}

// number returns v as a JSON-safe value; non-finite results become strings.
func number(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return expr.FormatNumber(v)
	}
	return v
}

func userToJSON(u *store.User) fiber.Map {
	return fiber.Map{
		"userId":           u.ID,
		"expressionCount":  len(u.Expressions),
		"operatorCounter":  u.Counter,
		"mostUsedOperator": string(u.MostUsed),
		"createTime":       u.CreateTime.Format(time.RFC3339),
		"updateTime":       u.UpdateTime.Format(time.RFC3339),
	}
}

func recordToJSON(rec store.Record) fiber.Map {
	m := fiber.Map{
		"id":         rec.ID.String(),
		"expression": rec.Expression,
		"usage":      rec.Usage,
		"time":       rec.Time.Format(time.RFC3339),
	}
	if rec.Failed() {
		m["error"] = rec.Error
	} else {
		m["value"] = number(rec.Result)
	}
	return m
}
