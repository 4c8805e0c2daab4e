package core

import (
	"time"
)

// Window is the half-open [From, To) time range queried from the history
// store on a given firing.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowEnding returns the extraction window closing at now for a task
// firing every intervalSeconds. The window slides with the firing: a delayed
// or skipped firing does not retroactively widen the next one, so data older
// than one interval is lost rather than re-fetched.
func WindowEnding(now time.Time, intervalSeconds int) Window {
	to := now.UTC()
	return Window{
		From: to.Add(-time.Duration(intervalSeconds) * time.Second),
		To:   to,
	}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.From) && ts.Before(w.To)
}
