package app

import (
	"time"
)

// Clock returns the current time; services default to time.Now
type Clock func() time.Time

func clockOrDefault(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}
