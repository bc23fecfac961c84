// Package repl runs the calculator as an interactive line-oriented session.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
)

const (
	cmdHelp = "help"
	cmdExit = "exit"
)

// Session reads queries from in and writes answers to out.
type Session struct {
	calc    *calculator.App
	scanner *bufio.Scanner
	out     io.Writer
	choices []string
}

// New creates a session over calc.
func New(calc *calculator.App, in io.Reader, out io.Writer) *Session {
	choices := make([]string, 0, len(calculator.Queries)+2)
	for _, q := range calculator.Queries {
		choices = append(choices, q.Type)
	}
	choices = append(choices, cmdHelp, cmdExit)

	return &Session{
		calc:    calc,
		scanner: bufio.NewScanner(in),
		out:     out,
		choices: choices,
	}
}

// Run prints the help text and serves queries until `exit` or end of input.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprint(s.out, calculator.Help())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, ok := s.prompt(fmt.Sprintf("\nChoose a query from [%s]: ", strings.Join(s.choices, ", ")))
		if !ok {
			return s.scanner.Err()
		}

		switch choice {
		case cmdExit:
			return nil
		case cmdHelp:
			fmt.Fprint(s.out, calculator.Help())
		case calculator.QueryEvaluate:
			if !s.evaluate(ctx) {
				return s.scanner.Err()
			}
		case calculator.QueryMostUsed:
			if !s.mostUsed(ctx) {
				return s.scanner.Err()
			}
		default:
			fmt.Fprintln(s.out, "\nInvalid query type. Enter `help` to print help or `exit` to leave. Please try again.")
		}
	}
}

// evaluate handles query 1. It reports false when input ran out.
func (s *Session) evaluate(ctx context.Context) bool {
	line, ok := s.prompt("\nQuery 1: Evaluate Expression.\nEnter expression and user_id separated by ',' (comma): ")
	if !ok {
		return false
	}

	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		fmt.Fprintf(s.out, "\nError: Invalid input: expected `expression, user_id`, got %d fields. Please try again\n", len(parts))
		return true
	}

	value, err := s.calc.Execute(ctx, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	if err != nil {
		fmt.Fprintf(s.out, "\nError: Invalid input: %v. Please try again\n", err)
		return true
	}
	fmt.Fprintf(s.out, "\n---  Value of the expression is %s  ---\n", expr.FormatNumber(value))
	return true
}

// mostUsed handles query 2. It reports false when input ran out.
func (s *Session) mostUsed(ctx context.Context) bool {
	userID, ok := s.prompt("\nQuery 2: Most Used Operator.\nEnter user_id: ")
	if !ok {
		return false
	}

	op, err := s.calc.MostUsedOperator(ctx, userID)
	if err != nil {
		fmt.Fprintf(s.out, "\nError: Invalid user_id: %v. Please try again\n", err)
		return true
	}
	fmt.Fprintf(s.out, "\n---  Most used operator by user %s is `%s`  ---\n", userID, op)
	return true
}

func (s *Session) prompt(msg string) (string, bool) {
	fmt.Fprint(s.out, msg)
	if !s.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.scanner.Text()), true
}
