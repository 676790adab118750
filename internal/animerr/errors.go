// Package animerr defines the error taxonomy surfaced by animation jobs.
//
// Every failure that leaves the orchestrator carries a Code so callers can
// tell a broken input file from an encoder crash without string matching:
//
//	if animerr.Is(err, animerr.CodeLoad) {
//	    // ask the user for a different image
//	}
package animerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	// CodeLoad means an input image could not be read or decoded.
	CodeLoad Code = "LOAD"
	// CodeValidation means job options or inputs are out of range.
	CodeValidation Code = "VALIDATION"
	// CodeProcessing covers skeletonization, path extraction and style generation.
	CodeProcessing Code = "PROCESSING"
	// CodeFrameIO means a frame could not be written to the frame buffer.
	CodeFrameIO Code = "FRAME_IO"
	// CodeEncode means the video encoder failed or is unavailable.
	CodeEncode Code = "ENCODE"
	// CodeCancelled means the job context was cancelled.
	CodeCancelled Code = "CANCELLED"
)

// Error is a categorized error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause. A nil cause yields nil.
func Wrap(code Code, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
