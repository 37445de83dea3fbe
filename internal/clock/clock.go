package clock

import "time"

// Clock abstracts wall-clock time so scheduling and activation logic can be
// tested against a simulated "today".
type Clock interface {
	Now() time.Time
}

// Today truncates the clock's current time to a UTC calendar date.
func Today(c Clock) time.Time {
	now := c.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
