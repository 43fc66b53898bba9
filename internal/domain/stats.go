package domain

import "time"

// Period scopes analytics to a window ending now.
type Period string

// Supported periods.
const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// DefaultPeriod is used for empty or unrecognized input.
const DefaultPeriod = PeriodMonth

// ParsePeriod maps s to a Period. Unknown values fall back to DefaultPeriod
// instead of failing.
func ParsePeriod(s string) Period {
	p := Period(s)
	if p.Valid() {
		return p
	}
	return DefaultPeriod
}

// Valid returns true if the period is a recognized value.
func (p Period) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// Start returns the inclusive start of the window ending at now.
// Today starts at local midnight in loc; the others are rolling windows.
func (p Period) Start(now time.Time, loc *time.Location) time.Time {
	switch p {
	case PeriodToday:
		return StartOfDay(now, loc)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodYear:
		return now.AddDate(0, 0, -365)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// HourlyBucket is minutes read in one hour of the day (0-23).
type HourlyBucket struct {
	Hour    int `json:"hour"`
	Minutes int `json:"minutes"`
}

// DailyBucket is minutes read on one local calendar date.
type DailyBucket struct {
	Date        string `json:"date"` // YYYY-MM-DD
	DayName     string `json:"day_name"`
	FullDayName string `json:"full_day_name"`
	Minutes     int    `json:"minutes"`
}

// PagesBucket is pages read on one local calendar date.
type PagesBucket struct {
	Date  string `json:"date"`
	Pages int    `json:"pages"`
}

// StreakDay is one cell of the streak strip.
type StreakDay struct {
	Date string `json:"date"`
	Read bool   `json:"read"`
}

// CategoryCount is the number of completed books in a category.
type CategoryCount struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

// TermCount is the frequency of a normalized search term.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// CompletionStats summarizes how many tracked books were finished.
type CompletionStats struct {
	Rate       int             `json:"rate"` // rounded percent
	Total      int             `json:"total"`
	Completed  int             `json:"completed"`
	ByCategory []CategoryCount `json:"by_category"`
}

// Dashboard is the period-scoped analytics rollup for one user.
type Dashboard struct {
	Period                Period          `json:"period"`
	StartDate             time.Time       `json:"start_date"`
	EndDate               time.Time       `json:"end_date"`
	HourlyDistribution    []HourlyBucket  `json:"hourly_distribution"`
	DailyDistribution     []DailyBucket   `json:"daily_distribution"`
	WeeklyDistribution    []DailyBucket   `json:"weekly_distribution"`
	PagesDailyActivity    []PagesBucket   `json:"pages_daily_activity"`
	CategoryAffinity      []CategoryCount `json:"category_affinity"`
	TopSearchTerms        []TermCount     `json:"top_search_terms"`
	Completion            CompletionStats `json:"completion"`
	CurrentStreak         int             `json:"current_streak"`
	LongestStreak         int             `json:"longest_streak"`
	StreakHistory         []StreakDay     `json:"streak_history"`
	TotalMinutes          int             `json:"total_minutes"`
	TotalPagesRead        int             `json:"total_pages_read"`
	SessionCount          int             `json:"session_count"`
	AverageSessionMinutes int             `json:"average_session_minutes"`
	Degraded              bool            `json:"degraded"`
}

// ReadingStats are lifetime totals for one user.
type ReadingStats struct {
	TotalBooksRead       int             `json:"total_books_read"`
	TotalTimeSeconds     int64           `json:"total_time_seconds"`
	TotalPagesRead       int             `json:"total_pages_read"`
	CurrentStreak        int             `json:"current_streak"`
	LongestStreak        int             `json:"longest_streak"`
	FavoriteCategory     string          `json:"favorite_category,omitempty"`
	FavoriteCategories   []CategoryCount `json:"favorite_categories"`
	BooksReadThisYear    int             `json:"books_read_this_year"`
	BooksReadThisMonth   int             `json:"books_read_this_month"`
	TimeThisMonthSeconds int64           `json:"time_this_month_seconds"`
	ReadingGoal          int             `json:"reading_goal"`
	ReadingGoalProgress  float64         `json:"reading_goal_progress"` // 0-100
}

// ReadingOverview splits a user's progress into shelves.
type ReadingOverview struct {
	InProgress []*ReadingProgress `json:"in_progress"`
	Completed  []*ReadingProgress `json:"completed"`
}
