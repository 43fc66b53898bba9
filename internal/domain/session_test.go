package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReadingSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	session := NewReadingSession("rs-1", "user-1", "book-1", now)

	require.NotNil(t, session)
	assert.Equal(t, "rs-1", session.ID)
	assert.Equal(t, now, session.StartedAt)
	assert.Nil(t, session.EndedAt)
	assert.Zero(t, session.DurationSeconds)
	assert.Zero(t, session.PagesRead)
	assert.True(t, session.IsOpen())
	assert.Equal(t, SessionStateOpen, session.State())
}

func TestReadingSession_State(t *testing.T) {
	var none *ReadingSession
	assert.Equal(t, SessionStateNone, none.State())
	assert.False(t, none.IsOpen())

	s := NewReadingSession("rs-1", "u", "b", time.Now())
	s.Close(time.Now())
	assert.Equal(t, SessionStateClosed, s.State())
	assert.Equal(t, "closed", s.State().String())
}

func TestReadingSession_ElapsedSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewReadingSession("rs-1", "u", "b", start)

	assert.Equal(t, int64(90), s.ElapsedSeconds(start.Add(90*time.Second+900*time.Millisecond)))
	assert.Equal(t, int64(0), s.ElapsedSeconds(start.Add(-time.Minute)), "clock skew floors at zero")
}

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("none + start creates", func(t *testing.T) {
		res, err := Transition(nil, EventStart, "u", "b", "rs-new", now)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "rs-new", res.Session.ID)
		assert.Equal(t, SessionStateOpen, res.Session.State())
	})

	t.Run("open + start resumes", func(t *testing.T) {
		open := NewReadingSession("rs-1", "u", "b", now.Add(-time.Hour))
		res, err := Transition(open, EventStart, "u", "b", "rs-new", now)
		require.NoError(t, err)
		assert.True(t, res.Resumed)
		assert.Same(t, open, res.Session)
	})

	t.Run("closed + start creates", func(t *testing.T) {
		closed := NewReadingSession("rs-1", "u", "b", now.Add(-time.Hour))
		closed.Close(now.Add(-time.Minute))
		res, err := Transition(closed, EventStart, "u", "b", "rs-2", now)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "rs-2", res.Session.ID)
	})

	t.Run("open + end closes", func(t *testing.T) {
		open := NewReadingSession("rs-1", "u", "b", now.Add(-10*time.Minute))
		res, err := Transition(open, EventEnd, "u", "b", "", now)
		require.NoError(t, err)
		assert.Equal(t, SessionStateClosed, res.Session.State())
		assert.Equal(t, int64(600), res.Session.DurationSeconds)
		assert.Equal(t, now, *res.Session.EndedAt)
	})

	t.Run("end without open session", func(t *testing.T) {
		_, err := Transition(nil, EventEnd, "u", "b", "", now)
		assert.ErrorIs(t, err, ErrSessionNotOpen)

		closed := NewReadingSession("rs-1", "u", "b", now.Add(-time.Hour))
		closed.Close(now)
		_, err = Transition(closed, EventEnd, "u", "b", "", now)
		assert.ErrorIs(t, err, ErrSessionNotOpen)
	})
}
