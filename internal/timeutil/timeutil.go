// Package timeutil provides small time helpers shared across the board.
package timeutil

import (
	"fmt"
	"time"
)

// FormatDuration renders a millisecond count as HH:MM:SS. Negative values
// clamp to zero.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
