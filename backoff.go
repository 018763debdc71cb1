package wsconn

import (
	"math"
	"time"
)

// BackoffCalculator returns how long to wait before the given reconnect attempt.
type BackoffCalculator func(attempts int) time.Duration

// ExponentialBackoff returns (2^attempts - 1) / 2, the wait in seconds before
// the given attempt.
func ExponentialBackoff(attempts int) float64 {
	return (math.Pow(2.0, float64(attempts)) - 1) / 2
}

// ExponentialBackoffSeconds is ExponentialBackoff truncated to whole seconds.
func ExponentialBackoffSeconds(attempts int) time.Duration {
	return time.Duration(ExponentialBackoff(attempts)) * time.Second
}

// CappedBackoff limits the delays produced by calc to maxWait.
func CappedBackoff(calc BackoffCalculator, maxWait time.Duration) BackoffCalculator {
	return func(attempts int) time.Duration {
		if d := calc(attempts); d < maxWait {
			return d
		}
		return maxWait
	}
}
