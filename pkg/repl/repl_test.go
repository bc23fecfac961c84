package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
)

func run(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	s := New(calculator.New(store.New()), strings.NewReader(input), &out)
	require.NoError(t, s.Run(context.Background()))
	return out.String()
}

func TestSessionEvaluateAndMostUsed(t *testing.T) {
	out := run(t, "1\n2*3*4+1, 9\n2\n9\nexit\n")

	assert.Contains(t, out, "Value of the expression is 25.0")
	assert.Contains(t, out, "Most used operator by user 9 is `*`")
}

func TestSessionErrorsKeepLooping(t *testing.T) {
	out := run(t, "7\n1\n5/0, 1\n1\n1+1\n2\n404\n1\n3-1, 1\nexit\n")

	assert.Contains(t, out, "Invalid query type")
	assert.Contains(t, out, "divide by zero")
	assert.Contains(t, out, "got 1 fields")
	assert.Contains(t, out, "does not exist")
	assert.Contains(t, out, "Value of the expression is 2.0")
}

func TestSessionHelp(t *testing.T) {
	out := run(t, "help\nexit\n")
	assert.Equal(t, 2, strings.Count(out, "types of queries"))
}

func TestSessionEOF(t *testing.T) {
	out := run(t, "1\n")
	assert.Contains(t, out, "Enter expression and user_id")

	out = run(t, "")
	assert.Contains(t, out, "Choose a query from [1, 2, help, exit]")
}

func TestSessionContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := New(calculator.New(store.New()), strings.NewReader("help\n"), &out)
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}
