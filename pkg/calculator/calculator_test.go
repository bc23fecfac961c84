package calculator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

func newApp() *App {
	return New(store.New())
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{" 7 ", 7, false},
		{"", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
		{"99999999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUserID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.HasTag(err, types.TagValueError))
				assert.Contains(t, err.Error(), "must be a natural number")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteAndMostUsed(t *testing.T) {
	ctx := context.Background()
	app := newApp()

	v, err := app.Execute(ctx, "2+3*4-1", "1")
	require.NoError(t, err)
	assert.Equal(t, 13.0, v)

	v, err = app.Execute(ctx, "2*2*2", "1")
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)

	op, err := app.MostUsedOperator(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, expr.OpMul, op)
}

func TestExecuteInvalidExpressionCreatesUser(t *testing.T) {
	ctx := context.Background()
	app := newApp()

	_, err := app.Execute(ctx, "5++5", "9")
	require.Error(t, err)
	assert.True(t, types.IsInvalidExpression(err))

	u, err := app.History(ctx, "9")
	require.NoError(t, err)
	assert.Empty(t, u.Expressions)

	op, err := app.MostUsedOperator(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, expr.Operator(""), op)
}

func TestExecuteDivideByZeroIsRecorded(t *testing.T) {
	ctx := context.Background()
	app := newApp()

	_, err := app.Execute(ctx, "5/0", "3")
	require.Error(t, err)
	assert.True(t, types.IsInvalidExpression(err))

	u, err := app.History(ctx, "3")
	require.NoError(t, err)
	require.Len(t, u.Expressions, 1)
	assert.Equal(t, []string{"5", "/", "0"}, u.Expressions[0].Expression)
	assert.True(t, u.Expressions[0].Failed())
	assert.Equal(t, 0, u.Counter.Total())
}

func TestExecuteBadUserID(t *testing.T) {
	_, err := newApp().Execute(context.Background(), "1+1", "abc")
	require.Error(t, err)
	assert.True(t, types.HasTag(err, types.TagValueError))
}

func TestMostUsedUnknownUser(t *testing.T) {
	_, err := newApp().MostUsedOperator(context.Background(), "77")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
	assert.Contains(t, err.Error(), "User with user_id `77` does not exist")
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	app := newApp()

	res, err := app.Run(ctx, QueryEvaluate, Args{Expression: "(2+3)*4", UserID: "5"})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, 20.0, *res.Value)
	assert.Nil(t, res.Operator)

	res, err = app.Run(ctx, QueryMostUsed, Args{UserID: "5"})
	require.NoError(t, err)
	require.NotNil(t, res.Operator)
	assert.Equal(t, expr.OpAdd, *res.Operator, "tie between + and * resolves to + in scan order")

	_, err = app.Run(ctx, "3", Args{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown query type")
}

func TestHelp(t *testing.T) {
	help := Help()
	assert.Contains(t, help, "2 types of queries")
	assert.Contains(t, help, "Evaluate Expression")
	assert.Contains(t, help, "Most Used Operator")
	assert.Contains(t, help, expr.AllowedChars)
}
