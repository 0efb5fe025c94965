package protocol

import (
	"errors"
	"fmt"
)

// Code categorizes protocol errors.
//
// Expected conditions (validation rejections, not-found) and
// infrastructure faults share one error type but are distinguished by
// code class; see IsRejection, IsNotFound, IsFault.
type Code string

const (
	// CodeValidationRejected indicates a program validator refused the write.
	CodeValidationRejected Code = "VALIDATION_REJECTED"

	// CodeNotFound indicates the record does not exist. Expected absence,
	// never an infrastructure fault.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUnknownProgram indicates no validator is configured for the
	// URI's program key. The schema fails closed.
	CodeUnknownProgram Code = "UNKNOWN_PROGRAM"

	// CodeMalformedURI indicates the address did not parse.
	CodeMalformedURI Code = "MALFORMED_URI"

	// CodeHashMismatch indicates content-addressed data did not hash to
	// its claimed digest.
	CodeHashMismatch Code = "HASH_MISMATCH"

	// CodeUnsupportedAlgorithm indicates a hash:// URI names an algorithm
	// the node does not implement.
	CodeUnsupportedAlgorithm Code = "UNSUPPORTED_ALGORITHM"

	// CodeImmutableConflict indicates a write-once address already holds
	// a record.
	CodeImmutableConflict Code = "IMMUTABLE_CONFLICT"

	// CodeBadSignature indicates an authenticated link failed signature
	// verification.
	CodeBadSignature Code = "BAD_SIGNATURE"

	// CodeEnvelopeRejected indicates a transaction envelope was refused
	// because one of its outputs failed validation.
	CodeEnvelopeRejected Code = "ENVELOPE_REJECTED"

	// CodeBackendFault indicates an infrastructure failure (connection
	// loss, malformed backend response). Converted from raw errors at the
	// backend boundary so combinators only ever see tagged results.
	CodeBackendFault Code = "BACKEND_FAULT"
)

// Error is the tagged failure result for every protocol operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// URI identifies the affected address, when known.
	URI string

	// Err is the underlying cause (infrastructure faults only).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("%s: %s (uri=%s)", e.Code, e.Message, e.URI)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, u string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), URI: u}
}

// NotFound creates the standard not-found error for an address.
func NotFound(u string) *Error {
	return &Error{Code: CodeNotFound, Message: "record not found", URI: u}
}

// Fault wraps an infrastructure error so it propagates as a tagged
// result rather than an untyped failure. Idempotent: an error that is
// already an *Error passes through unchanged.
func Fault(u string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Code: CodeBackendFault, Message: err.Error(), URI: u, Err: err}
}

// CodeOf extracts the error code, or CodeBackendFault for untyped errors.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeBackendFault
}

// IsNotFound reports whether err is an expected-absence result.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsRejection reports whether err is a validation-class rejection:
// expected, carries a human-readable reason, never a fault.
func IsRejection(err error) bool {
	switch CodeOf(err) {
	case CodeValidationRejected, CodeUnknownProgram, CodeMalformedURI,
		CodeHashMismatch, CodeUnsupportedAlgorithm, CodeImmutableConflict,
		CodeBadSignature, CodeEnvelopeRejected:
		return true
	}
	return false
}

// IsFault reports whether err is an infrastructure fault.
func IsFault(err error) bool {
	return err != nil && CodeOf(err) == CodeBackendFault
}
