package domain

import (
	"math"
	"time"
)

// CompletionThreshold is the percent at which a book counts as read.
const CompletionThreshold = 95.0

// DefaultLocation is the cursor assigned to a freshly created progress record.
const DefaultLocation = "0"

// ReadingProgress is the durable reading cursor for one (user, book).
type ReadingProgress struct {
	UserID           string    `json:"user_id"`
	BookID           string    `json:"book_id"`
	LastLocation     string    `json:"last_location"`
	CurrentPage      int       `json:"current_page"`
	Percent          float64   `json:"percent"`
	TotalTimeSeconds int64     `json:"total_time_seconds"`
	Completed        bool      `json:"completed"`
	LastOpenedAt     time.Time `json:"last_opened_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewReadingProgress returns the zero-state record created on first interaction.
func NewReadingProgress(userID, bookID string, now time.Time) *ReadingProgress {
	return &ReadingProgress{
		UserID:       userID,
		BookID:       bookID,
		LastLocation: DefaultLocation,
		LastOpenedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetPercent clamps p into [0, 100] and recomputes Completed.
func (p *ReadingProgress) SetPercent(percent float64) {
	p.Percent = ClampPercent(percent)
	p.Completed = IsComplete(p.Percent)
}

// IsComplete reports whether percent reaches the completion threshold.
func IsComplete(percent float64) bool {
	return percent >= CompletionThreshold
}

// ClampPercent bounds percent to [0, 100].
func ClampPercent(percent float64) float64 {
	return math.Min(100, math.Max(0, percent))
}

// PercentFromPage derives reading percent from a page position.
// ok is false when pageCount is unknown.
func PercentFromPage(page, pageCount int) (percent float64, ok bool) {
	if pageCount <= 0 {
		return 0, false
	}
	return ClampPercent(float64(page) / float64(pageCount) * 100), true
}

// ProgressUpdate carries the optional fields of a heartbeat.
// Nil fields were not supplied by the client.
type ProgressUpdate struct {
	Location    *string
	CurrentPage *int
	Percent     *float64
}
