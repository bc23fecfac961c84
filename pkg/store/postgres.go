package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS calc_users (
    id          BIGINT PRIMARY KEY,
    counter     JSONB NOT NULL,
    most_used   TEXT NOT NULL DEFAULT '',
    create_time TIMESTAMPTZ NOT NULL,
    update_time TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS calc_records (
    seq        BIGSERIAL PRIMARY KEY,
    id         UUID NOT NULL UNIQUE,
    user_id    BIGINT NOT NULL REFERENCES calc_users(id),
    expression JSONB NOT NULL,
    result     DOUBLE PRECISION NOT NULL,
    usage      JSONB NOT NULL,
    error      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS calc_records_user_idx ON calc_records (user_id, seq);
`

const insertUserSQL = `
INSERT INTO calc_users (id, counter, most_used, create_time, update_time)
VALUES ($1, $2::jsonb, '', $3, $3)
ON CONFLICT (id) DO NOTHING;
`

// Postgres is a Repository backed by a pgx connection pool. Updates for a
// user run in a transaction holding that user's row lock.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to connStr, verifies the connection and creates the
// tables if they are missing.
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{db: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.db.Close()
}

// EnsureUser implements Repository.
func (p *Postgres) EnsureUser(ctx context.Context, id uint64) (*User, error) {
	counter, err := marshalUsage(expr.NewUsage())
	if err != nil {
		return nil, err
	}
	if _, err := p.db.Exec(ctx, insertUserSQL, int64(id), counter, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return p.User(ctx, id)
}

// Record implements Repository.
func (p *Postgres) Record(ctx context.Context, id uint64, rec Record) (*User, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	zero, err := marshalUsage(expr.NewUsage())
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, insertUserSQL, int64(id), zero, now); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	var rawCounter []byte
	var mostUsed string
	err = tx.QueryRow(ctx, `SELECT counter, most_used FROM calc_users WHERE id = $1 FOR UPDATE`, int64(id)).
		Scan(&rawCounter, &mostUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	counter, err := unmarshalUsage(rawCounter)
	if err != nil {
		return nil, err
	}

	op := expr.Operator(mostUsed)
	if !rec.Failed() {
		counter.Add(rec.Usage)
		op = MostUsed(counter, op)
	}

	counterJSON, err := marshalUsage(counter)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE calc_users SET counter = $2::jsonb, most_used = $3, update_time = $4 WHERE id = $1`,
		int64(id), counterJSON, string(op), now); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	exprJSON, err := json.Marshal(rec.Expression)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expression: %w", err)
	}
	usageJSON, err := marshalUsage(rec.Usage)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO calc_records (id, user_id, expression, result, usage, error, created_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5::jsonb, $6, $7)`,
		rec.ID, int64(id), string(exprJSON), rec.Result, usageJSON, rec.Error, rec.Time); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return p.User(ctx, id)
}

// User implements Repository.
func (p *Postgres) User(ctx context.Context, id uint64) (*User, error) {
	var (
		rawCounter []byte
		mostUsed   string
		u          = &User{ID: id}
	)
	err := p.db.QueryRow(ctx,
		`SELECT counter, most_used, create_time, update_time FROM calc_users WHERE id = $1`, int64(id)).
		Scan(&rawCounter, &mostUsed, &u.CreateTime, &u.UpdateTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewNotFound(fmt.Sprintf("User with user_id `%d` does not exist", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if u.Counter, err = unmarshalUsage(rawCounter); err != nil {
		return nil, err
	}
	u.MostUsed = expr.Operator(mostUsed)

	rows, err := p.db.Query(ctx,
		`SELECT id, expression, result, usage, error, created_at
		 FROM calc_records WHERE user_id = $1 ORDER BY seq`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       Record
			recID     uuid.UUID
			rawExpr   []byte
			rawUsage  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&recID, &rawExpr, &rec.Result, &rawUsage, &rec.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal(rawExpr, &rec.Expression); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expression: %w", err)
		}
		if rec.Usage, err = unmarshalUsage(rawUsage); err != nil {
			return nil, err
		}
		rec.ID = recID
		rec.Time = createdAt
		u.Expressions = append(u.Expressions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return u, nil
}

// ListUsers implements Repository.
func (p *Postgres) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := p.db.Query(ctx, `SELECT id FROM calc_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	result := make([]*User, 0, len(ids))
	for _, id := range ids {
		u, err := p.User(ctx, uint64(id))
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

func marshalUsage(u expr.Usage) (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to marshal usage: %w", err)
	}
	return string(b), nil
}

func unmarshalUsage(raw []byte) (expr.Usage, error) {
	u := expr.NewUsage()
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage: %w", err)
	}
	return u, nil
}
