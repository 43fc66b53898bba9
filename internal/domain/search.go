package domain

import "time"

// SearchEvent is one free-text query logged by the search collaborator.
// UserID is empty for anonymous searches.
type SearchEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searched_at"`
}
