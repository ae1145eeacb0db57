package chi

import "time"

// SetLimiterClock replaces the limiter's time source.
func SetLimiterClock(l *Limiter, now func() time.Time) {
	l.now = now
}
