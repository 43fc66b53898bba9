package domain

import (
	"errors"
	"time"
)

// ReadingSession is one continuous reading interval for a (user, book) pair.
// A session is open while EndedAt is nil.
type ReadingSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	BookID          string     `json:"book_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	PagesRead       int        `json:"pages_read"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewReadingSession creates an open session starting at now.
func NewReadingSession(id, userID, bookID string, now time.Time) *ReadingSession {
	return &ReadingSession{
		ID:        id,
		UserID:    userID,
		BookID:    bookID,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOpen reports whether the session has not been ended.
func (s *ReadingSession) IsOpen() bool {
	return s != nil && s.EndedAt == nil
}

// ElapsedSeconds returns whole seconds between StartedAt and at, floored at zero.
func (s *ReadingSession) ElapsedSeconds(at time.Time) int64 {
	d := int64(at.Sub(s.StartedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// Close ends the session at the given time and fixes its duration.
func (s *ReadingSession) Close(at time.Time) {
	ended := at
	s.EndedAt = &ended
	s.DurationSeconds = s.ElapsedSeconds(at)
	s.UpdatedAt = at
}

// SessionState is the lifecycle state of the session slot for one (user, book).
type SessionState int

// Session lifecycle states.
const (
	SessionStateNone SessionState = iota
	SessionStateOpen
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateOpen:
		return "open"
	case SessionStateClosed:
		return "closed"
	default:
		return "none"
	}
}

// State returns the lifecycle state of s. A nil session is SessionStateNone.
func (s *ReadingSession) State() SessionState {
	switch {
	case s == nil:
		return SessionStateNone
	case s.EndedAt == nil:
		return SessionStateOpen
	default:
		return SessionStateClosed
	}
}

// SessionEvent drives a session lifecycle transition.
type SessionEvent int

// Session lifecycle events.
const (
	EventStart SessionEvent = iota
	EventEnd
)

// ErrSessionNotOpen is returned by Transition when EventEnd targets a slot without an open session.
var ErrSessionNotOpen = errors.New("session is not open")

// TransitionResult describes the outcome of a lifecycle transition.
type TransitionResult struct {
	Session *ReadingSession // the open session after Start, or the closed one after End
	Resumed bool            // Start found an already open session
	Created bool            // Start created a new session
}

// Transition applies ev to the current session of a (user, book) slot.
//
//	None/Closed + Start -> Open (new session with newID)
//	Open        + Start -> Open (same session, resumed)
//	Open        + End   -> Closed
//	None/Closed + End   -> ErrSessionNotOpen
//
// current is mutated in place when it is closed.
func Transition(current *ReadingSession, ev SessionEvent, userID, bookID, newID string, now time.Time) (TransitionResult, error) {
	switch ev {
	case EventStart:
		if current.State() == SessionStateOpen {
			return TransitionResult{Session: current, Resumed: true}, nil
		}
		return TransitionResult{Session: NewReadingSession(newID, userID, bookID, now), Created: true}, nil
	case EventEnd:
		if current.State() != SessionStateOpen {
			return TransitionResult{}, ErrSessionNotOpen
		}
		current.Close(now)
		return TransitionResult{Session: current}, nil
	default:
		return TransitionResult{}, errors.New("unknown session event")
	}
}
