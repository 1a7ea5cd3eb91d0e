package port

import "time"

// RefreshPolicy decides how long to wait before the next poll cycle based
// on whether a charging session is running.
type RefreshPolicy interface {
	Interval(charging bool) time.Duration
}
