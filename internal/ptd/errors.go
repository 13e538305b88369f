package ptd

import (
	"errors"
	"fmt"
)

// Code categorizes the fatal conditions of container processing.
type Code string

const (
	// CodeFormatMismatch indicates the container trailer or an encoded field is not what the
	// layout requires.
	CodeFormatMismatch Code = "FORMAT_MISMATCH"

	// CodeTruncatedStream indicates the event stream does not align to whole words.
	CodeTruncatedStream Code = "TRUNCATED_STREAM"

	// CodeUnsupportedEncoding indicates a word format other than 32 bits.
	CodeUnsupportedEncoding Code = "UNSUPPORTED_ENCODING"

	// CodeUnknownPolicy indicates an unrecognized retention policy name.
	CodeUnknownPolicy Code = "UNKNOWN_POLICY"

	// CodeDigitWidthMismatch indicates a rewritten dose would change the width of its field.
	CodeDigitWidthMismatch Code = "DIGIT_WIDTH_MISMATCH"

	// CodeMissingInput indicates the input container does not exist.
	CodeMissingInput Code = "MISSING_INPUT"

	// CodeOutputIsInput indicates the output path names the input container.
	CodeOutputIsInput Code = "OUTPUT_IS_INPUT"
)

// Error is a fatal container processing error. Expected and Found carry the values a caller
// needs to diagnose the input without inspecting it by hand.
type Error struct {
	Code     Code
	Op       string
	Expected string
	Found    string
	Err      error
}

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrFormatMismatch      = &Error{Code: CodeFormatMismatch}
	ErrTruncatedStream     = &Error{Code: CodeTruncatedStream}
	ErrUnsupportedEncoding = &Error{Code: CodeUnsupportedEncoding}
	ErrUnknownPolicy       = &Error{Code: CodeUnknownPolicy}
	ErrDigitWidthMismatch  = &Error{Code: CodeDigitWidthMismatch}
	ErrMissingInput        = &Error{Code: CodeMissingInput}
	ErrOutputIsInput       = &Error{Code: CodeOutputIsInput}
)

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Expected != "" || e.Found != "" {
		msg += fmt.Sprintf(" (expected %q, found %q)", e.Expected, e.Found)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, op, expected, found string) *Error {
	return &Error{Code: code, Op: op, Expected: expected, Found: found}
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
