package clock

import "time"

// Clock abstracts time for the reconciler so sync-mark behavior is
// testable without sleeping.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
