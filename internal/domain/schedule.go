package domain

import "time"

// NextRefreshDelay returns the time from now until the next interval
// boundary, measured in UTC. With a 15 minute interval this is the next
// quarter hour. A now that falls exactly on a boundary waits a full interval.
func NextRefreshDelay(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	now = now.UTC()
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
