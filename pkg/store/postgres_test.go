package store

import (
	"context"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// These tests need a disposable database; set TEST_DATABASE_URL to run them.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	p, err := NewPostgres(context.Background(), connStr)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPostgresRecordAndUser(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	id := rand.Uint64N(1 << 40)

	_, err := p.Record(ctx, id, NewRecord([]string{"2", "*", "3"}, 6, usage(map[expr.Operator]int{expr.OpMul: 1}), nil))
	require.NoError(t, err)
	u, err := p.Record(ctx, id, NewRecord([]string{"5", "/", "0"}, 0, nil, types.NewZeroDivisionError()))
	require.NoError(t, err)

	require.Len(t, u.Expressions, 2)
	assert.Equal(t, []string{"2", "*", "3"}, u.Expressions[0].Expression)
	assert.Equal(t, 6.0, u.Expressions[0].Result)
	assert.True(t, u.Expressions[1].Failed())
	assert.Equal(t, 1, u.Counter[expr.OpMul])
	assert.Equal(t, expr.OpMul, u.MostUsed)

	users, err := p.ListUsers(ctx)
	require.NoError(t, err)
	found := false
	for _, lu := range users {
		if lu.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPostgresUserNotFound(t *testing.T) {
	p := newTestPostgres(t)

	_, err := p.User(context.Background(), 1<<50)
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}
