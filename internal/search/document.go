// Package search keeps the analytics event logs: append-only Bleve indexes of
// the free-text queries users run against the catalog and of the books they
// open, read back by time range for admin and dashboard analytics.
package search

import (
	"strconv"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
)

// Field names in the event index.
const (
	fieldQuery      = "query"
	fieldUserID     = "user_id"
	fieldSearchedAt = "searched_at"
)

// eventDocument is the indexed form of a domain.SearchEvent.
type eventDocument struct {
	Query      string
	UserID     string
	SearchedAt time.Time
}

func newEventDocument(e *domain.SearchEvent) *eventDocument {
	return &eventDocument{
		Query:      e.Query,
		UserID:     e.UserID,
		SearchedAt: e.SearchedAt.UTC(),
	}
}

// ToMap converts the document so field names match the mapping.
func (d *eventDocument) ToMap() map[string]any {
	m := map[string]any{
		fieldQuery:      d.Query,
		fieldSearchedAt: d.SearchedAt,
	}
	if d.UserID != "" {
		m[fieldUserID] = d.UserID
	}
	return m
}

// eventFromFields rebuilds an event from stored hit fields.
func eventFromFields(id string, fields map[string]any) domain.SearchEvent {
	e := domain.SearchEvent{ID: id}
	if q, ok := fields[fieldQuery].(string); ok {
		e.Query = q
	}
	if u, ok := fields[fieldUserID].(string); ok {
		e.UserID = u
	}
	if ts, ok := fields[fieldSearchedAt].(string); ok {
		e.SearchedAt = parseStoredTime(ts)
	}
	return e
}

// parseStoredTime accepts the formatted or Unix-nanosecond forms Bleve returns
// for stored datetime fields.
func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(0, ns).UTC()
	}
	return time.Time{}
}
