package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagelens/pagelens/internal/analysis"
)

// UserStore maps emails to user ids in Postgres.
//
// It assumes the schema:
//
//	CREATE TABLE users (
//		id UUID PRIMARY KEY,
//		email TEXT NOT NULL UNIQUE
//	);
type UserStore struct {
	pool  pgxPool
	idGen analysis.IDGenerator
}

// NewUserStore creates a Postgres-backed UserStore.
func NewUserStore(pool *pgxpool.Pool, idGen analysis.IDGenerator) (*UserStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &UserStore{pool: pool, idGen: idGen}, nil
}

// NewUserStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewUserStoreWithPool(pool pgxPool, idGen analysis.IDGenerator) (*UserStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &UserStore{pool: pool, idGen: idGen}, nil
}

// FindByEmail returns the id of the user registered under email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", analysis.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select user: %w", err)
	}
	return id, nil
}

// Create registers a new user and returns its generated id. The unique
// index on email makes duplicate signups race-safe: the losing insert
// affects zero rows.
func (s *UserStore) Create(ctx context.Context, email string) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO users (id, email) VALUES ($1, $2)
ON CONFLICT (email) DO NOTHING`, id, email)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", analysis.ErrEmailTaken
	}
	return id, nil
}
