package retry

// Strategy pairs a RetryPolicy with a BackoffPolicy, the unit configured
// per action id (§4.7).
type Strategy struct {
	Policy  RetryPolicy
	Backoff BackoffPolicy
}

// ShouldRetry reports whether another attempt should be made after
// failedAttempts failures.
func (s Strategy) ShouldRetry(failedAttempts int) bool {
	return s.Policy.ShouldRetry(failedAttempts)
}

// DelayMs is the wait, in milliseconds, before the next attempt.
func (s Strategy) DelayMs(failedAttempts int) int64 {
	if failedAttempts == 0 {
		return 0
	}
	return s.Backoff.DelayMs(failedAttempts)
}
