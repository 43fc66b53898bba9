package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	tests := map[string]Period{
		"today":  PeriodToday,
		"week":   PeriodWeek,
		"month":  PeriodMonth,
		"year":   PeriodYear,
		"":       PeriodMonth,
		"weekly": PeriodMonth,
		"TODAY":  PeriodMonth,
		"all":    PeriodMonth,
		"decade": PeriodMonth,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePeriod(in), "input %q", in)
	}
}

func TestPeriod_Start(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC) // 03:30 local

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), PeriodToday.Start(now, loc))
	assert.Equal(t, now.AddDate(0, 0, -7), PeriodWeek.Start(now, loc))
	assert.Equal(t, now.AddDate(0, 0, -30), PeriodMonth.Start(now, loc))
	assert.Equal(t, now.AddDate(0, 0, -365), PeriodYear.Start(now, loc))
}

func TestStartOfDay_NilLocation(t *testing.T) {
	now := time.Now()
	got := StartOfDay(now, nil)
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, time.Local, got.Location())
}
