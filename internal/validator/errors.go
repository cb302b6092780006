package validator

import "fmt"

// Error is one structural violation found by Validate, tagged by the
// concrete check that produced it.
type Error interface {
	error
	validatorError()
}

// NotValidIdOrNameError reports a Filter/Ruleset/Rule name, node-map key,
// extracted-var name, or action id that does not match the identifier
// grammar `^[a-zA-Z_][a-zA-Z0-9_]*$`.
type NotValidIdOrNameError struct {
	Path  string
	Value string
}

func (e *NotValidIdOrNameError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid identifier", e.Path, e.Value)
}

func (e *NotValidIdOrNameError) validatorError() {}

// NotUniqueRuleNameError reports two rules with the same name within a
// single Ruleset.
type NotUniqueRuleNameError struct {
	Path string
	Name string
}

func (e *NotUniqueRuleNameError) Error() string {
	return fmt.Sprintf("%s: rule name %q is not unique", e.Path, e.Name)
}

func (e *NotUniqueRuleNameError) validatorError() {}

// Errors is the aggregate result of Validate. It implements error so a
// caller can propagate it directly, but callers that need to inspect
// individual violations should range over it.
type Errors []Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(e), e[0].Error())
}

// HasErrors reports whether any violation was found.
func (e Errors) HasErrors() bool { return len(e) > 0 }
