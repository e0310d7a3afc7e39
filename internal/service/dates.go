package service

import "time"

// normalizeDate strips the time-of-day component so calendar dates compare
// and persist consistently regardless of the caller's zone.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
