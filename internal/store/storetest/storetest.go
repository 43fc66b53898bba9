// Package storetest holds behaviour tests shared by every store.Backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens an empty backend. Cleanup is the caller's job via t.Cleanup.
type Factory func(t *testing.T) store.Backend

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Run executes the backend behaviour tests against fresh stores from open.
func Run(t *testing.T, open Factory) {
	t.Run("SessionRoundTrip", func(t *testing.T) { testSessionRoundTrip(t, open(t)) })
	t.Run("SessionNotFound", func(t *testing.T) { testSessionNotFound(t, open(t)) })
	t.Run("OpenSessionUniqueness", func(t *testing.T) { testOpenSessionUniqueness(t, open(t)) })
	t.Run("CloseFreesSlot", func(t *testing.T) { testCloseFreesSlot(t, open(t)) })
	t.Run("ListUserSessions", func(t *testing.T) { testListUserSessions(t, open(t)) })
	t.Run("IDsContainingSeparators", func(t *testing.T) { testIDsContainingSeparators(t, open(t)) })
	t.Run("ProgressUpsert", func(t *testing.T) { testProgressUpsert(t, open(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, open(t)) })
	t.Run("Catalog", func(t *testing.T) { testCatalog(t, open(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, open(t).Ping(context.Background())) })
}

func testSessionRoundTrip(t *testing.T, s store.Backend) {
	ctx := context.Background()
	session := domain.NewReadingSession("rs-1", "user-1", "book-1", base)
	session.PagesRead = 4

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSession(ctx, session)
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		got, err := tx.GetSession(ctx, "rs-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "book-1", got.BookID)
		assert.True(t, got.StartedAt.Equal(base))
		assert.Equal(t, 4, got.PagesRead)
		assert.True(t, got.IsOpen())

		open, err := tx.ListOpenSessions(ctx, "user-1", "book-1")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "rs-1", open[0].ID)
		return nil
	}))
}

func testSessionNotFound(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateSession(ctx, domain.NewReadingSession("missing", "u", "b", base))
	})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func testOpenSessionUniqueness(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-1", "u", "b", base))
	}))

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-2", "u", "b", base.Add(time.Minute)))
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	// A different book is a different slot.
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-3", "u", "other", base))
	}))
}

func testCloseFreesSlot(t *testing.T, s store.Backend) {
	ctx := context.Background()
	first := domain.NewReadingSession("rs-1", "u", "b", base)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSession(ctx, first)
	}))

	first.Close(base.Add(10 * time.Minute))
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateSession(ctx, first)
	}))

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, "u", "b")
		require.NoError(t, err)
		assert.Empty(t, open)
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-2", "u", "b", base.Add(time.Hour)))
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		closed, err := tx.GetSession(ctx, "rs-1")
		require.NoError(t, err)
		require.NotNil(t, closed.EndedAt)
		assert.Equal(t, int64(600), closed.DurationSeconds)
		return nil
	}))
}

func testListUserSessions(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		for i, book := range []string{"b1", "b2", "b3"} {
			session := domain.NewReadingSession("rs-"+book, "u", book, base.Add(time.Duration(i)*time.Hour))
			if err := tx.CreateSession(ctx, session); err != nil {
				return err
			}
		}
		return tx.CreateSession(ctx, domain.NewReadingSession("rs-other", "someone-else", "b1", base))
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		all, err := tx.ListUserSessions(ctx, "u", time.Time{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "rs-b1", all[0].ID, "oldest first")
		assert.Equal(t, "rs-b3", all[2].ID)

		recent, err := tx.ListUserSessions(ctx, "u", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, recent, 2)
		return nil
	}))
}

func testProgressUpsert(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetProgress(ctx, "u", "b")
		assert.ErrorIs(t, err, store.ErrProgressNotFound)
		return nil
	}))

	p := domain.NewReadingProgress("u", "b", base)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.SaveProgress(ctx, p)
	}))

	p.CurrentPage = 120
	p.LastLocation = "chapter-4"
	p.TotalTimeSeconds = 900
	p.SetPercent(96)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		if err := tx.SaveProgress(ctx, p); err != nil {
			return err
		}
		return tx.SaveProgress(ctx, domain.NewReadingProgress("u", "b2", base))
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		got, err := tx.GetProgress(ctx, "u", "b")
		require.NoError(t, err)
		assert.Equal(t, 120, got.CurrentPage)
		assert.Equal(t, "chapter-4", got.LastLocation)
		assert.Equal(t, int64(900), got.TotalTimeSeconds)
		assert.InDelta(t, 96.0, got.Percent, 0.0001)
		assert.True(t, got.Completed)

		all, err := tx.ListUserProgress(ctx, "u")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		none, err := tx.ListUserProgress(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	}))
}

func testRollbackOnError(t *testing.T, s store.Backend) {
	ctx := context.Background()
	boom := assert.AnError
	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.SaveProgress(ctx, domain.NewReadingProgress("u", "b", base)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetProgress(ctx, "u", "b")
		assert.ErrorIs(t, err, store.ErrProgressNotFound)
		return nil
	}))
}

func testCatalog(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.SaveCategory(ctx, &domain.Category{ID: "cat-1", Name: "Fantasy"}))
	require.NoError(t, s.SaveBook(ctx, &domain.Book{
		ID: "book-1", Title: "Dune", PageCount: 412, CategoryIDs: []string{"cat-1"},
		Published: true, CreatedAt: base, UpdatedAt: base,
	}))
	require.NoError(t, s.SaveBook(ctx, &domain.Book{ID: "book-draft", Title: "Draft", CreatedAt: base, UpdatedAt: base}))

	book, err := s.GetPublishedBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 412, book.PageCount)
	assert.Equal(t, []string{"cat-1"}, book.CategoryIDs)

	_, err = s.GetPublishedBook(ctx, "book-draft")
	assert.ErrorIs(t, err, store.ErrBookNotFound)
	_, err = s.GetPublishedBook(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	books, err := s.GetBooks(ctx, []string{"book-1", "book-draft", "missing"})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	cats, err := s.GetCategories(ctx, []string{"cat-1", "cat-x"})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Fantasy", cats["cat-1"].Name)
}

func testIDsContainingSeparators(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreateSession(ctx, domain.NewReadingSession("rs-x", "u1", "b:2", base)); err != nil {
			return err
		}
		if err := tx.CreateSession(ctx, domain.NewReadingSession("rs-y", "u1:b", "2", base)); err != nil {
			return err
		}
		if err := tx.SaveProgress(ctx, domain.NewReadingProgress("u1:evil", "b", base)); err != nil {
			return err
		}
		return tx.SaveProgress(ctx, domain.NewReadingProgress("u1", "b:2", base))
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, "u1", "b")
		require.NoError(t, err)
		assert.Empty(t, open)

		open, err = tx.ListOpenSessions(ctx, "u1", "b:2")
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "rs-x", open[0].ID)

		sessions, err := tx.ListUserSessions(ctx, "u1", time.Time{})
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "rs-x", sessions[0].ID)

		records, err := tx.ListUserProgress(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "b:2", records[0].BookID)

		_, err = tx.GetProgress(ctx, "u1", "b")
		assert.ErrorIs(t, err, store.ErrProgressNotFound)
		return nil
	}))
}
