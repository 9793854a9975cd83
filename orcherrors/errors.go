// Package orcherrors implements the orchestration pipeline's error taxonomy:
// a small, stable set of machine codes, each carrying an HTTP-shaped status,
// a human message, and a structured detail bag. It mirrors the classify-and-
// wrap pattern the teacher codebase uses for provider and tool failures
// (preserve the cause chain, expose a stable code for callers to branch on).
package orcherrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error classification. Callers should
// branch on Code, never on Error()'s message text.
type Code string

const (
	// CodePlannerError marks a Planner failure after retries are exhausted.
	CodePlannerError Code = "PLANNER_ERROR"
	// CodePolicyBlocked marks a whole-plan Tool Gate rejection.
	CodePolicyBlocked Code = "POLICY_BLOCKED"
	// CodeSQLSafetyError marks a SQL parse failure or policy violation.
	CodeSQLSafetyError Code = "SQL_SAFETY_ERROR"
	// CodeToolExecutionError marks a connector failure, unknown tool, or timeout.
	CodeToolExecutionError Code = "TOOL_EXECUTION_ERROR"
	// CodeVerificationError marks the fatal shortcut: every attempted tool failed.
	CodeVerificationError Code = "VERIFICATION_ERROR"
	// CodeSourceNotFound marks a referenced source that is unavailable.
	CodeSourceNotFound Code = "SOURCE_NOT_FOUND"
)

var httpStatus = map[Code]int{
	CodePlannerError:       422,
	CodePolicyBlocked:      403,
	CodeSQLSafetyError:     403,
	CodeToolExecutionError: 500,
	CodeVerificationError:  422,
	CodeSourceNotFound:     404,
}

// Error is the concrete error type returned across stage boundaries. It
// preserves an optional cause for errors.Is/errors.As, and carries a detail
// bag for structured context (validation issues, tool name, SQL text) that
// a caller may want to log or surface without parsing the message string.
type Error struct {
	code    Code
	message string
	details map[string]any
	cause   error
}

// New constructs an Error with the given code and message. details may be
// nil; cause may be nil when the error does not wrap an underlying failure.
func New(code Code, message string, details map[string]any, cause error) *Error {
	if message == "" {
		message = string(code)
	}
	return &Error{code: code, message: message, details: details, cause: cause}
}

// Code returns the stable machine code.
func (e *Error) Code() Code { return e.code }

// HTTPStatus returns the HTTP-shaped status code associated with Code. This
// core never serves HTTP itself; the status is provided so an external HTTP
// surface can translate an Error without re-deriving the mapping.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.code]; ok {
		return s
	}
	return 500
}

// Details returns the structured detail bag, or nil if none was set.
func (e *Error) Details() map[string]any { return e.details }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap returns the wrapped cause, enabling errors.Is/errors.As across
// stage boundaries.
func (e *Error) Unwrap() error { return e.cause }

// As extracts the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// Is reports whether err's chain contains an *Error with the given code.
func Is(err error, code Code) bool {
	oe, ok := As(err)
	return ok && oe.code == code
}
