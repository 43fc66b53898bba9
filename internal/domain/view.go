package domain

import "time"

// BookView is one book open, logged when a reader starts or resumes a session.
type BookView struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	BookID   string    `json:"book_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// DailyCount is the number of events on one local date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourlyCount is the number of events in one local hour of day.
type HourlyCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// BookViewCount ranks a book by how often it was opened.
type BookViewCount struct {
	BookID string `json:"book_id"`
	Title  string `json:"title"`
	Views  int    `json:"views"`
}

// AdminOverviewTotals are the headline counters of the admin overview.
type AdminOverviewTotals struct {
	TotalViews    int `json:"total_views"`
	ActiveUsers7d int `json:"active_users_7d"`
	ActiveUsers   int `json:"active_users"`
}

// AdminOverview is the catalog-wide activity summary over a trailing window.
type AdminOverview struct {
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	Totals         AdminOverviewTotals `json:"overview"`
	MostReadBooks  []BookViewCount     `json:"most_read_books"`
	ReadsPerDay    []DailyCount        `json:"reads_per_day"`
	ReadsPerHour   []HourlyCount       `json:"reads_per_hour"`
	TopSearchTerms []TermCount         `json:"top_search_terms"`
}
