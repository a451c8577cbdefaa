// Package repository persists game sessions between actions. Stores hold the
// encoded snapshot and guard every write with an optimistic version check.
package repository

import (
	"context"
	"errors"

	"github.com/magefree/mage-duel-server/internal/game"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists is returned by Create for a duplicate id.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrConflict is returned by Save when the stored version moved on since
	// the session was loaded.
	ErrConflict = errors.New("session version conflict")
)

// SessionStore loads and saves sessions. Stores do not validate game state.
type SessionStore interface {
	// Create stores a new session at version 1 and updates s.Version.
	Create(ctx context.Context, s *game.Session) error
	// Load returns the session with Version set to the stored version.
	Load(ctx context.Context, id string) (*game.Session, error)
	// Save writes s if the stored version still equals s.Version, then
	// increments s.Version.
	Save(ctx context.Context, s *game.Session) error
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}
