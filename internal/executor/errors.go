package executor

import "fmt"

// Error is the §4.8/§7 ExecutorError taxonomy. Every concrete error type
// below satisfies it; CanRetry distinguishes the one fatal variant
// (ActionExecutionError with can_retry=false) from the rest, which the
// retry layer treats as retryable by default.
type Error interface {
	error
	CanRetry() bool
}

// MissingArgumentError reports a required payload key absent from the
// Action, e.g. ForEachExecutor's "target" or "actions" keys.
type MissingArgumentError struct {
	Message string
}

func (e *MissingArgumentError) Error() string { return fmt.Sprintf("missing argument: %s", e.Message) }
func (e *MissingArgumentError) CanRetry() bool { return true }

// UnknownArgumentError reports a payload key of an unexpected type or an
// unrecognized value where one of a fixed set was required.
type UnknownArgumentError struct {
	Message string
}

func (e *UnknownArgumentError) Error() string { return fmt.Sprintf("unknown argument: %s", e.Message) }
func (e *UnknownArgumentError) CanRetry() bool { return true }

// ConfigurationError reports the executor itself is misconfigured. No
// executor in this package returns it (ArchiveExecutor creates a missing
// base_path and reports write failures as ActionExecutionError).
// Retrying will not help until the configuration changes, but the retry layer still treats it
// as retryable by default per §7 — only ActionExecutionError can opt out.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("executor configuration error: %s", e.Message) }
func (e *ConfigurationError) CanRetry() bool { return true }

// ActionExecutionError reports a failure while carrying out the action's
// side effect. CanRetry lets the executor mark a failure fatal (e.g. a
// 4xx HTTP response) so the retry layer stops immediately instead of
// burning its retry budget.
type ActionExecutionError struct {
	Retryable bool
	Message   string
	Code      string
	Data      map[string]string
}

func (e *ActionExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action execution failed [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("action execution failed: %s", e.Message)
}
func (e *ActionExecutionError) CanRetry() bool { return e.Retryable }

// SerdeError reports a failure encoding or decoding a value needed by the
// executor (e.g. archive's event-to-JSON serialization).
type SerdeError struct {
	Message string
}

func (e *SerdeError) Error() string { return fmt.Sprintf("serialization error: %s", e.Message) }
func (e *SerdeError) CanRetry() bool { return true }
