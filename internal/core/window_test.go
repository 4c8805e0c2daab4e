package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowEnding(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 30, 45, 0, time.UTC)
	win := WindowEnding(now, 60)

	assert.Equal(t, now.Add(-60*time.Second), win.From)
	assert.Equal(t, now, win.To)
}

func TestWindowEndingNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2025, 3, 10, 13, 30, 45, 0, loc)
	win := WindowEnding(now, 300)

	assert.Equal(t, time.UTC, win.To.Location())
	assert.True(t, win.To.Equal(now))
	assert.Equal(t, 5*time.Minute, win.To.Sub(win.From))
}

func TestWindowContainsIsHalfOpen(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	win := WindowEnding(now, 60)

	assert.True(t, win.Contains(win.From), "lower bound is inclusive")
	assert.True(t, win.Contains(now.Add(-time.Second)))
	assert.False(t, win.Contains(win.To), "upper bound is exclusive")
	assert.False(t, win.Contains(win.From.Add(-time.Millisecond)))
}

func TestBindingTaskExpired(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	task := &BindingTask{Expiry: expiry}

	assert.False(t, task.Expired(expiry.Add(-time.Second)))
	assert.True(t, task.Expired(expiry), "expiry instant itself counts as expired")
	assert.True(t, task.Expired(expiry.Add(time.Hour)))
}
