package playback

import "time"

// Clock is the monotonic audio clock the scheduler positions chunks against.
// Now reports the elapsed time since session start. A fake implementation is
// used in tests; the real one wraps the runtime's monotonic clock.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a Clock whose zero point is the moment of the call.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) Now() time.Duration {
	return time.Since(c.start)
}
