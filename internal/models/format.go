package models

import (
	"fmt"
	"time"
)

// TimeSince renders how long ago an epoch-millisecond timestamp was, in the
// coarse d/h/m form the holdings list uses.
func TimeSince(ms int64, now time.Time) string {
	return coarse(now.Sub(time.UnixMilli(ms)))
}

// TimeUntil renders how far away a future time is, used for token expiry.
func TimeUntil(t time.Time, now time.Time) string {
	return coarse(t.Sub(now))
}

func coarse(d time.Duration) string {
	minutes := int(d.Minutes())
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
