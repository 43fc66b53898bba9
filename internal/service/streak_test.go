package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(today time.Time, offsets ...int) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, o := range offsets {
		out[i] = today.AddDate(0, 0, -o)
	}
	return LocalDates(out, today.Location())
}

func TestStreaks(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		offsets []int
		current int
		longest int
	}{
		{"empty", nil, 0, 0},
		{"today only", []int{0}, 1, 1},
		{"yesterday keeps the streak", []int{1, 2}, 2, 2},
		{"gap at two days", []int{0, 1, 2, 4}, 3, 3},
		{"break on day three", []int{3}, 0, 1},
		{"older longest run", []int{0, 5, 6, 7, 8}, 1, 4},
		{"duplicates collapse", []int{0, 0, 1, 1}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := days(today, tt.offsets...)
			assert.Equal(t, tt.current, CurrentStreak(dates, today))
			assert.Equal(t, tt.longest, LongestStreak(dates))
		})
	}
}

func TestLocalDates_UsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 20:00 and 23:00 UTC fall on different days in Tokyo.
	times := []time.Time{
		time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC),
	}

	assert.Len(t, LocalDates(times, time.UTC), 1)

	dates := LocalDates(times, tokyo)
	require.Len(t, dates, 2)
	assert.Equal(t, "2026-03-10", dates[0].Format(dateLayout))
	assert.Equal(t, "2026-03-09", dates[1].Format(dateLayout))
}

func TestStreakHistory(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	history := StreakHistory(days(today, 0, 2, 29, 40), today, 30)

	require.Len(t, history, 30)
	assert.Equal(t, "2026-02-09", history[0].Date)
	assert.True(t, history[0].Read)
	assert.Equal(t, "2026-03-10", history[29].Date)
	assert.True(t, history[29].Read)
	assert.False(t, history[28].Read)
	assert.True(t, history[27].Read)

	read := 0
	for _, d := range history {
		if d.Read {
			read++
		}
	}
	assert.Equal(t, 3, read)
}
