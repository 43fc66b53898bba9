package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two transactions that both observe an empty slot cannot both commit a new session.
func TestStore_ConcurrentCreateConflicts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	observed := make(chan struct{})
	committed := make(chan error, 1)
	go func() {
		<-observed
		committed <- s.Update(ctx, func(tx store.Tx) error {
			return tx.CreateSession(ctx, domain.NewReadingSession("rs-b", "u", "b", now))
		})
	}()

	err := s.Update(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, "u", "b")
		require.NoError(t, err)
		require.Empty(t, open)

		close(observed)
		require.NoError(t, <-committed)

		return tx.CreateSession(ctx, domain.NewReadingSession("rs-a", "u", "b", now))
	})
	require.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, "u", "b")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "rs-b", open[0].ID)
		return nil
	}))
}

func TestStore_CloseAndReopenInOneTransaction(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Closing and reopening in one transaction leaves only the new session open.
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		older := domain.NewReadingSession("rs-old", "u", "b", now.Add(-time.Hour))
		if err := tx.CreateSession(ctx, older); err != nil {
			return err
		}
		older.Close(now.Add(-30 * time.Minute))
		if err := tx.UpdateSession(ctx, older); err != nil {
			return err
		}
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-new", "u", "b", now))
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, "u", "b")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "rs-new", open[0].ID)
		return nil
	}))
}
