package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReadingProgress(t *testing.T) {
	now := time.Now()
	p := NewReadingProgress("u", "b", now)

	assert.Equal(t, DefaultLocation, p.LastLocation)
	assert.Zero(t, p.Percent)
	assert.Zero(t, p.CurrentPage)
	assert.Zero(t, p.TotalTimeSeconds)
	assert.False(t, p.Completed)
}

func TestReadingProgress_SetPercent(t *testing.T) {
	tests := []struct {
		in        float64
		want      float64
		completed bool
	}{
		{94.9, 94.9, false},
		{95.0, 95.0, true},
		{100, 100, true},
		{130, 100, true},
		{-5, 0, false},
	}

	for _, tt := range tests {
		p := &ReadingProgress{}
		p.SetPercent(tt.in)
		assert.Equal(t, tt.want, p.Percent, "input %v", tt.in)
		assert.Equal(t, tt.completed, p.Completed, "input %v", tt.in)
	}
}

func TestPercentFromPage(t *testing.T) {
	pct, ok := PercentFromPage(50, 200)
	assert.True(t, ok)
	assert.Equal(t, 25.0, pct)

	pct, ok = PercentFromPage(250, 200)
	assert.True(t, ok)
	assert.Equal(t, 100.0, pct)

	_, ok = PercentFromPage(10, 0)
	assert.False(t, ok)
}
