package interval

import "time"

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now implements Clock.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
