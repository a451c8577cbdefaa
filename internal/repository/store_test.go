package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, id string) *game.Session {
	t.Helper()
	s, err := game.NewSession(game.NewSessionParams{
		ID:          id,
		PlayerOne:   game.SeatConfig{PlayerID: "alice", Deck: []string{"forest", "bears", "forest"}},
		PlayerTwo:   game.SeatConfig{PlayerID: "bob", Deck: []string{"mountain", "shock"}, IsAI: true},
		OpeningHand: 1,
	})
	require.NoError(t, err)
	return s
}

// runStoreContract exercises behavior every SessionStore must share.
func runStoreContract(t *testing.T, open func(t *testing.T) SessionStore) {
	ctx := context.Background()

	t.Run("create and load", func(t *testing.T) {
		store := open(t)
		s := newSession(t, "s1")
		require.NoError(t, store.Create(ctx, s))
		assert.Equal(t, int64(1), s.Version)

		got, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, s.Snapshot().Checksum, got.Snapshot().Checksum)
		assert.True(t, got.Players["bob"].IsAI)
	})

	t.Run("duplicate create", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Create(ctx, newSession(t, "s1")))
		assert.ErrorIs(t, store.Create(ctx, newSession(t, "s1")), ErrAlreadyExists)
	})

	t.Run("missing session", func(t *testing.T) {
		store := open(t)
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Save(ctx, newSession(t, "nope")), ErrNotFound)
	})

	t.Run("save bumps the version", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Create(ctx, newSession(t, "s1")))

		s, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		s.Players["alice"].Life = 12
		require.NoError(t, store.Save(ctx, s))
		assert.Equal(t, int64(2), s.Version)

		got, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 12, got.Players["alice"].Life)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Create(ctx, newSession(t, "s1")))

		first, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		second, err := store.Load(ctx, "s1")
		require.NoError(t, err)

		first.Players["alice"].Life = 10
		require.NoError(t, store.Save(ctx, first))

		second.Players["alice"].Life = 5
		assert.ErrorIs(t, store.Save(ctx, second), ErrConflict)

		got, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 10, got.Players["alice"].Life, "last writer does not win")
	})

	t.Run("concurrent saves", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Create(ctx, newSession(t, "s1")))

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < writers; i++ {
			s, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			wg.Add(1)
			go func(s *game.Session) {
				defer wg.Done()
				if store.Save(ctx, s) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(s)
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, open(t).Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) SessionStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) SessionStore {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestOpenSQLiteIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Create(context.Background(), newSession(t, "s1")))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Load(context.Background(), "s1")
	assert.NoError(t, err)
}

func TestUpSection(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE x (id INT);\n-- +migrate Down\nDROP TABLE x;\n"
	assert.Equal(t, "\nCREATE TABLE x (id INT);\n", upSection(sql))
	assert.Equal(t, "SELECT 1", upSection("SELECT 1"))
}
