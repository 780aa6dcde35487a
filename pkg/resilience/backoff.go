package resilience

import (
	"time"
)

// BackoffSchedule computes exponential retry delays. It holds no state;
// callers pass the attempt count they have persisted.
type BackoffSchedule struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
}

// DefaultBackoffSchedule returns the standard schedule
func DefaultBackoffSchedule() *BackoffSchedule {
	return &BackoffSchedule{
		InitialDelay: DefaultBackoffInitialDelay,
		MaxDelay:     DefaultBackoffMaxDelay,
		Factor:       DefaultBackoffFactor,
	}
}

// DelayFor returns the cooldown before attempt n+1 given n prior failures.
// Attempt 0 has no delay.
func (b *BackoffSchedule) DelayFor(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	delay := b.InitialDelay
	for i := 1; i < attempts; i++ {
		delay = time.Duration(float64(delay) * b.Factor)
		if delay >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}

// ReadyAt returns the earliest time the next attempt may run, given the
// timestamp of the last failure and the number of failures so far.
func (b *BackoffSchedule) ReadyAt(lastAttempt time.Time, attempts int) time.Time {
	return lastAttempt.Add(b.DelayFor(attempts))
}
