// Package store keeps per-user calculation history and operator tallies.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// Record is one expression submitted by a user.
type Record struct {
	ID         uuid.UUID  `json:"id"`
	Expression []string   `json:"expression"`
	Result     float64    `json:"result"`
	Usage      expr.Usage `json:"usage"`
	Error      string     `json:"error,omitempty"`
	Time       time.Time  `json:"time"`
}

// Failed reports whether the expression failed to evaluate.
func (r Record) Failed() bool {
	return r.Error != ""
}

// User is the aggregated state of one user.
type User struct {
	ID          uint64        `json:"userId"`
	Expressions []Record      `json:"expressions"`
	Counter     expr.Usage    `json:"operatorCounter"`
	MostUsed    expr.Operator `json:"mostUsedOperator"`
	CreateTime  time.Time     `json:"createTime"`
	UpdateTime  time.Time     `json:"updateTime"`
}

// Repository persists users and their expression history. Implementations
// serialise updates so concurrent calls for the same user do not lose counts.
type Repository interface {
	// EnsureUser returns the user, creating an empty one if needed.
	EnsureUser(ctx context.Context, id uint64) (*User, error)

	// Record appends rec to the user's history. Its usage is added to the
	// user's counters only when the evaluation succeeded.
	Record(ctx context.Context, id uint64, rec Record) (*User, error)

	// User retrieves a user by ID.
	User(ctx context.Context, id uint64) (*User, error)

	// ListUsers returns every known user ordered by ID.
	ListUsers(ctx context.Context) ([]*User, error)
}

// NewRecord stamps a fresh history entry.
func NewRecord(expression []string, result float64, usage expr.Usage, evalErr error) Record {
	rec := Record{
		ID:         uuid.New(),
		Expression: expression,
		Result:     result,
		Usage:      usage,
		Time:       time.Now(),
	}
	if evalErr != nil {
		rec.Error = evalErr.Error()
		rec.Usage = expr.NewUsage()
	}
	if rec.Usage == nil {
		rec.Usage = expr.NewUsage()
	}
	return rec
}

// MostUsed scans counter in the fixed operator order and returns the
// operator with the highest count. current is kept on ties; an operator
// replaces it only with a strictly greater count. Zero counts never win.
func MostUsed(counter expr.Usage, current expr.Operator) expr.Operator {
	best := current
	bestCount := 0
	if current != "" {
		bestCount = counter[current]
	}
	for _, op := range expr.Operators {
		if counter[op] > bestCount {
			best = op
			bestCount = counter[op]
		}
	}
	return best
}

// Memory is a thread-safe in-memory Repository.
type Memory struct {
	mu    sync.RWMutex
	users map[uint64]*User
}

// New creates a new empty in-memory store.
func New() *Memory {
	return &Memory{users: make(map[uint64]*User)}
}

// EnsureUser implements Repository.
func (s *Memory) EnsureUser(_ context.Context, id uint64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensure(id).clone(), nil
}

func (s *Memory) ensure(id uint64) *User {
	u, ok := s.users[id]
	if !ok {
		now := time.Now()
		u = &User{
			ID:         id,
			Counter:    expr.NewUsage(),
			CreateTime: now,
			UpdateTime: now,
		}
		s.users[id] = u
	}
	return u
}

// Record implements Repository.
func (s *Memory) Record(_ context.Context, id uint64, rec Record) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensure(id)
	u.Expressions = append(u.Expressions, rec)
	if !rec.Failed() {
		u.Counter.Add(rec.Usage)
		u.MostUsed = MostUsed(u.Counter, u.MostUsed)
	}
	u.UpdateTime = time.Now()
	return u.clone(), nil
}

// User implements Repository.
func (s *Memory) User(_ context.Context, id uint64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, types.NewNotFound(fmt.Sprintf("User with user_id `%d` does not exist", id))
	}
	return u.clone(), nil
}

// ListUsers implements Repository.
func (s *Memory) ListUsers(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// clone copies u so callers never share state with the store.
func (u *User) clone() *User {
	c := *u
	c.Expressions = append([]Record(nil), u.Expressions...)
	c.Counter = expr.NewUsage()
	c.Counter.Add(u.Counter)
	return &c
}
