package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/magefree/mage-duel-server/internal/game"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

const createSessionsTableSQL = `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id         TEXT PRIMARY KEY,
		state      JSONB NOT NULL,
		version    BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`

// PostgresStore persists sessions as jsonb rows.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the sessions table when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createSessionsTableSQL); err != nil {
		return fmt.Errorf("create game_sessions: %w", err)
	}
	return nil
}

// Create implements SessionStore.
func (p *PostgresStore) Create(ctx context.Context, s *game.Session) error {
	data, err := game.EncodeSession(s)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, state, version, created_at, updated_at) VALUES ($1, $2, 1, $3, $4)`,
		s.ID, data, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, s.ID)
		}
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	s.Version = 1
	return nil
}

// Load implements SessionStore.
func (p *PostgresStore) Load(ctx context.Context, id string) (*game.Session, error) {
	var (
		data    []byte
		version int64
	)
	err := p.pool.QueryRow(ctx, `SELECT state, version FROM game_sessions WHERE id = $1`, id).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	s, err := game.DecodeSession(data)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("stored session is unreadable", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}
	s.Version = version
	return s, nil
}

// Save implements SessionStore.
func (p *PostgresStore) Save(ctx context.Context, s *game.Session) error {
	data, err := game.EncodeSession(s)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE game_sessions SET state = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4`,
		s.ID, data, s.UpdatedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM game_sessions WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check session %s: %w", s.ID, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
		}
		return fmt.Errorf("%w: %s", ErrConflict, s.ID)
	}
	s.Version++
	return nil
}

// Ping implements SessionStore.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
