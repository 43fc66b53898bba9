package service

import (
	"slices"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
)

// dateLayout formats local calendar dates in series and streak output.
const dateLayout = "2006-01-02"

// streakHistoryDays is the length of the streak strip.
const streakHistoryDays = 30

// LocalDates converts timestamps to distinct local midnights in loc, newest first.
func LocalDates(times []time.Time, loc *time.Location) []time.Time {
	seen := make(map[string]struct{}, len(times))
	dates := make([]time.Time, 0, len(times))
	for _, t := range times {
		day := domain.StartOfDay(t, loc)
		key := day.Format(dateLayout)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, day)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return b.Compare(a) })
	return dates
}

// CurrentStreak counts consecutive days ending today or yesterday.
// dates must be distinct local midnights; today is any instant of the current day.
func CurrentStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	desc := sortedDesc(dates)

	day := domain.StartOfDay(today, today.Location())
	yesterday := day.AddDate(0, 0, -1)
	if !sameDate(desc[0], day) && !sameDate(desc[0], yesterday) {
		return 0
	}

	streak := 1
	expected := desc[0].AddDate(0, 0, -1)
	for _, d := range desc[1:] {
		if !sameDate(d, expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive days.
func LongestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	asc := sortedDesc(dates)
	slices.Reverse(asc)

	longest, run := 1, 1
	for i := 1; i < len(asc); i++ {
		if sameDate(asc[i], asc[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// StreakHistory marks which of the last days days, oldest first, had reading.
func StreakHistory(dates []time.Time, today time.Time, days int) []domain.StreakDay {
	read := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		read[d.Format(dateLayout)] = struct{}{}
	}

	day := domain.StartOfDay(today, today.Location())
	history := make([]domain.StreakDay, days)
	for i := range days {
		key := day.AddDate(0, 0, i-days+1).Format(dateLayout)
		_, ok := read[key]
		history[i] = domain.StreakDay{Date: key, Read: ok}
	}
	return history
}

func sortedDesc(dates []time.Time) []time.Time {
	out := slices.Clone(dates)
	slices.SortFunc(out, func(a, b time.Time) int { return b.Compare(a) })
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}
