// Package calculator answers the two user-facing queries: evaluate an
// expression on behalf of a user, and report the user's most used operator.
package calculator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// Query types.
const (
	QueryEvaluate = "1"
	QueryMostUsed = "2"
)

// Query describes one query type for help output.
type Query struct {
	Type        string
	Name        string
	Description string
}

// Queries lists the supported query types in display order.
var Queries = []Query{
	{
		Type:        QueryEvaluate,
		Name:        "Evaluate Expression",
		Description: "Evaluates a mathematical expression for a user. Takes `expression` and `user_id` (natural number).",
	},
	{
		Type:        QueryMostUsed,
		Name:        "Most Used Operator",
		Description: "Returns the operator a user has applied most often. Takes `user_id` (natural number).",
	},
}

// Args carries the arguments of a query.
type Args struct {
	Expression string
	UserID     string
}

// Result is the answer to a query; exactly one field is set.
type Result struct {
	Value    *float64
	Operator *expr.Operator
}

// App evaluates expressions and tracks per-user statistics.
type App struct {
	repo store.Repository
}

// New creates an App over repo.
func New(repo store.Repository) *App {
	return &App{repo: repo}
}

// Repository returns the backing store.
func (a *App) Repository() store.Repository {
	return a.repo
}

// ParseUserID accepts a decimal natural number.
func ParseUserID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, types.NewValueError("`user_id` must be a natural number")
	}
	id, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, types.NewValueError("`user_id` must be a natural number")
	}
	return id, nil
}

// Execute evaluates expression for userID and folds the operator usage into
// the user's totals. The user is created on first contact, even when the
// expression is rejected. Expressions that tokenize are kept in the user's
// history whether or not they evaluate.
func (a *App) Execute(ctx context.Context, expression, userID string) (float64, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return 0, err
	}
	if _, err := a.repo.EnsureUser(ctx, id); err != nil {
		return 0, err
	}

	tokens, err := expr.Tokenize(expression)
	if err != nil {
		return 0, err
	}

	value, usage, evalErr := expr.Evaluate(tokens)
	rec := store.NewRecord(expr.Canonical(tokens), value, usage, evalErr)
	if _, err := a.repo.Record(ctx, id, rec); err != nil {
		return 0, fmt.Errorf("recording expression: %w", err)
	}
	if evalErr != nil {
		return 0, evalErr
	}
	return value, nil
}

// MostUsedOperator returns the user's most used operator. The result is
// empty when the user has not applied any operator yet.
func (a *App) MostUsedOperator(ctx context.Context, userID string) (expr.Operator, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return "", err
	}
	u, err := a.repo.User(ctx, id)
	if err != nil {
		return "", err
	}
	return u.MostUsed, nil
}

// History returns the user's recorded expressions.
func (a *App) History(ctx context.Context, userID string) (*store.User, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	return a.repo.User(ctx, id)
}

// Run dispatches a query by type.
func (a *App) Run(ctx context.Context, queryType string, args Args) (Result, error) {
	switch queryType {
	case QueryEvaluate:
		v, err := a.Execute(ctx, args.Expression, args.UserID)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: &v}, nil
	case QueryMostUsed:
		op, err := a.MostUsedOperator(ctx, args.UserID)
		if err != nil {
			return Result{}, err
		}
		return Result{Operator: &op}, nil
	default:
		return Result{}, types.NewValueError(fmt.Sprintf("unknown query type %q", queryType))
	}
}

// Help describes the calculator and its query types.
func Help() string {
	var sb strings.Builder
	sb.WriteString("The application allows users to solve mathematical expressions.\n")
	sb.WriteString("An expression can be any sequence of BODMAS operations.\n")
	fmt.Fprintf(&sb, "Allowed characters: `%s`\n", expr.AllowedChars)
	sb.WriteString("Operators: + (add), - (subtract), * (multiply), / (divide), ^ (power)\n")
	sb.WriteString("Sub-expressions can be put inside parentheses.\n")
	fmt.Fprintf(&sb, "User can perform %d types of queries\n", len(Queries))
	for _, q := range Queries {
		fmt.Fprintf(&sb, "  %s: %s. %s\n", q.Type, q.Name, q.Description)
	}
	return sb.String()
}
