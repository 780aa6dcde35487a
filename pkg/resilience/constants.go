package resilience

import "time"

// Circuit breaker default configuration values
const (
	DefaultMaxRequests           uint32        = 3
	DefaultInterval              time.Duration = 60 * time.Second
	DefaultTimeout               time.Duration = 30 * time.Second
	DefaultFailureThreshold      uint32        = 5
	DefaultFailureRatioThreshold float64       = 0.5
	DefaultMinRequestsToTrip     uint32        = 10
)

// Backoff default configuration values
const (
	DefaultBackoffInitialDelay  time.Duration = 2 * time.Second
	DefaultBackoffMaxDelay      time.Duration = 5 * time.Minute
	DefaultBackoffFactor        float64       = 2.0
)
