package domain

import "time"

// Book is the catalog view the tracking core needs.
// PageCount of zero means the page count is unknown.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PageCount   int       `json:"page_count"`
	CategoryIDs []string  `json:"category_ids,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasPageCount reports whether percent can be derived from a page position.
func (b *Book) HasPageCount() bool {
	return b != nil && b.PageCount > 0
}

// Category groups books for affinity analytics.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
