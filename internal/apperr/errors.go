// Package apperr defines the error taxonomy shared by the submission pipeline.
//
// Input and export errors are detected locally before any network call.
// Submit errors come from a single attempt against the remote service and are
// never retried automatically.
package apperr

import (
	"errors"
	"fmt"
)

// InputCode identifies a user-correctable input problem.
type InputCode string

const (
	EmptyBatch        InputCode = "EmptyBatch"
	BatchTooLarge     InputCode = "BatchTooLarge"
	UnsupportedFormat InputCode = "UnsupportedFormat"
	FileTooLarge      InputCode = "FileTooLarge"
	// InvalidCandidate marks a hand-built batch that skipped normalization.
	InvalidCandidate  InputCode = "InvalidCandidate"
)

// InputError is returned before submission when the input cannot form a batch.
type InputError struct {
	Code    InputCode
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// Is matches any InputError with the same code.
func (e *InputError) Is(target error) bool {
	t, ok := target.(*InputError)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyBatch        = &InputError{Code: EmptyBatch, Message: "no valid email addresses found"}
	ErrBatchTooLarge     = &InputError{Code: BatchTooLarge, Message: "too many email addresses in one batch"}
	ErrUnsupportedFormat = &InputError{Code: UnsupportedFormat, Message: "please upload a CSV file"}
	ErrFileTooLarge      = &InputError{Code: FileTooLarge, Message: "file is too large"}
	ErrInvalidCandidate  = &InputError{Code: InvalidCandidate, Message: "batch holds an invalid or repeated address"}
)

// Input builds an InputError carrying a more specific message.
func Input(code InputCode, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// SubmitKind classifies a failed remote call.
type SubmitKind string

const (
	NetworkUnavailable SubmitKind = "NetworkUnavailable"
	ServerRejected     SubmitKind = "ServerRejected"
	ServerError        SubmitKind = "ServerError"
)

// SubmitError is the single failure of one outbound call.
type SubmitError struct {
	Kind    SubmitKind
	Status  int
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Is matches any SubmitError of the same kind.
func (e *SubmitError) Is(target error) bool {
	t, ok := target.(*SubmitError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNetworkUnavailable = &SubmitError{Kind: NetworkUnavailable}
	ErrServerRejected     = &SubmitError{Kind: ServerRejected}
	ErrServerError        = &SubmitError{Kind: ServerError}
)

// KindOf returns the submit kind of err, or "" when err is not a SubmitError.
func KindOf(err error) SubmitKind {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// ExportError is a local precondition failure of an export.
type ExportError struct {
	Code string
}

func (e *ExportError) Error() string {
	return "no results to export"
}

func (e *ExportError) Is(target error) bool {
	t, ok := target.(*ExportError)
	return ok && t.Code == e.Code
}

var ErrEmptyResultSet = &ExportError{Code: "EmptyResultSet"}

// ErrBusy rejects a submission while another one is in flight for the session.
var ErrBusy = errors.New("a batch is already being processed")
