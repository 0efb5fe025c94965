package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused (validation rejection, not found)
	ExitCommandError = 2 // Command error (bad config, malformed arguments)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the standard JSON response shape for CLI output.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Formatter handles JSON vs text output for CLI commands.
type Formatter struct {
	Format string
	Writer io.Writer
}

// OK emits a success response. In text mode data is rendered as
// indented JSON without the envelope.
func (f *Formatter) OK(data any) error {
	if f.Format == "json" {
		return f.emit(Response{Status: "ok", Data: data})
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.Writer, string(out))
	return err
}

// Fail emits an error response.
func (f *Formatter) Fail(opErr error) error {
	if f.Format == "json" {
		return f.emit(Response{Status: "error", Error: opErr.Error()})
	}
	_, err := fmt.Fprintf(f.Writer, "error: %v\n", opErr)
	return err
}

func (f *Formatter) emit(resp Response) error {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.Writer, string(out))
	return err
}
