package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Runtime failure (I/O, ledger, interrupted run)
	ExitCommandError = 2 // Command or input error (bad flags, malformed container, unknown policy)
)

// Error codes reported in JSON output for failures that are not container errors.
const (
	ErrCodeConfig  = "CONFIG_INVALID"
	ErrCodeUsage   = "USAGE"
	ErrCodeLedger  = "LEDGER_FAILED"
	ErrCodeFailure = "FAILED"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written through an OutputFormatter.
	Reported bool
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // ptd error code or one of the ErrCode constants
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text output uses the value's
// String method.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorDetails is the JSON detail of a container error.
type errorDetails struct {
	Op       string `json:"op,omitempty"`
	Expected string `json:"expected,omitempty"`
	Found    string `json:"found,omitempty"`
}

// Fail reports err and returns the ExitError the command should return. Container errors exit
// with ExitCommandError and their own code; anything else uses fallbackCode and ExitFailure.
// An err that is already an ExitError keeps its exit code.
func (f *OutputFormatter) Fail(message, fallbackCode string, err error) error {
	var ptdErr *ptd.Error
	if errors.As(err, &ptdErr) {
		_ = f.Error(string(ptdErr.Code), fmt.Sprintf("%s: %v", message, err),
			errorDetails{Op: ptdErr.Op, Expected: ptdErr.Expected, Found: ptdErr.Found})
		return &ExitError{Code: ExitCommandError, Message: message, Err: err, Reported: true}
	}

	code := ExitFailure
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	_ = f.Error(fallbackCode, fmt.Sprintf("%s: %v", message, err), nil)
	return &ExitError{Code: code, Message: message, Err: err, Reported: true}
}
