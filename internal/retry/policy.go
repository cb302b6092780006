// Package retry implements §4.7: a retry/backoff wrapper around any
// action executor, grounded on the same retry-with-context-aware-wait
// shape the config store's Postgres layer already uses.
package retry

// PolicyKind discriminates a RetryPolicy variant.
type PolicyKind int

const (
	// PolicyNone never retries: success requires the first attempt to
	// succeed.
	PolicyNone PolicyKind = iota
	// PolicyMaxRetries allows up to Retries+1 total attempts.
	PolicyMaxRetries
	// PolicyInfinite retries forever until success or a fatal error.
	PolicyInfinite
)

// RetryPolicy bounds how many attempts an action gets.
type RetryPolicy struct {
	Kind    PolicyKind
	Retries int // meaningful only for PolicyMaxRetries
}

// NoRetry is the RetryPolicy that allows exactly one attempt.
func NoRetry() RetryPolicy { return RetryPolicy{Kind: PolicyNone} }

// MaxRetries allows up to n+1 attempts.
func MaxRetries(n int) RetryPolicy { return RetryPolicy{Kind: PolicyMaxRetries, Retries: n} }

// InfiniteRetry retries forever.
func InfiniteRetry() RetryPolicy { return RetryPolicy{Kind: PolicyInfinite} }

// ShouldRetry reports whether another attempt should be made given the
// number of attempts that have already failed. Per §4.7 it is true
// before the first attempt (failedAttempts == 0) regardless of policy.
func (p RetryPolicy) ShouldRetry(failedAttempts int) bool {
	if failedAttempts == 0 {
		return true
	}
	switch p.Kind {
	case PolicyNone:
		return false
	case PolicyMaxRetries:
		return failedAttempts <= p.Retries
	case PolicyInfinite:
		return true
	default:
		return false
	}
}

// BackoffKind discriminates a BackoffPolicy variant.
type BackoffKind int

const (
	BackoffNone BackoffKind = iota
	BackoffFixed
	BackoffVariable
)

// BackoffPolicy computes the wait between attempts.
type BackoffPolicy struct {
	Kind       BackoffKind
	FixedMs    int64   // meaningful only for BackoffFixed
	VariableMs []int64 // meaningful only for BackoffVariable
}

// NoBackoff waits nothing between attempts.
func NoBackoff() BackoffPolicy { return BackoffPolicy{Kind: BackoffNone} }

// FixedBackoff waits ms milliseconds between every attempt; ms == 0
// behaves like NoBackoff.
func FixedBackoff(ms int64) BackoffPolicy { return BackoffPolicy{Kind: BackoffFixed, FixedMs: ms} }

// VariableBackoff waits ms[i-1] milliseconds after the i-th failure,
// clamping to the last element once i exceeds len(ms); an empty slice
// behaves like NoBackoff.
func VariableBackoff(ms []int64) BackoffPolicy {
	return BackoffPolicy{Kind: BackoffVariable, VariableMs: ms}
}

// DelayMs returns the backoff, in milliseconds, to apply after the
// failedAttempts-th failure before the next attempt. Called only when
// failedAttempts > 0 — the first attempt is never delayed.
func (b BackoffPolicy) DelayMs(failedAttempts int) int64 {
	switch b.Kind {
	case BackoffNone:
		return 0
	case BackoffFixed:
		return b.FixedMs
	case BackoffVariable:
		if len(b.VariableMs) == 0 {
			return 0
		}
		idx := failedAttempts - 1
		if idx >= len(b.VariableMs) {
			idx = len(b.VariableMs) - 1
		}
		return b.VariableMs[idx]
	default:
		return 0
	}
}
