package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/taskstore/internal/ir"
)

// ErrorCode categorizes instruction failures.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the signer is not the record's owner.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvalidSignature indicates the request is not signed by its signer.
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"

	// ErrCodeRecordNotFound indicates no live record exists at the address.
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// ErrCodeDuplicateRecord indicates the derived address is already occupied.
	ErrCodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"

	// ErrCodeContentTooLarge indicates content exceeds MaxContentBytes.
	ErrCodeContentTooLarge ErrorCode = "CONTENT_TOO_LARGE"

	// ErrCodeInsufficientFunds indicates the creator cannot cover the deposit.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeInvalidInstruction indicates an unknown instruction, or a
	// request addressed to a different program or operation.
	ErrCodeInvalidInstruction ErrorCode = "INVALID_INSTRUCTION"

	// ErrCodeCorruptRecord indicates stored bytes do not decode as a record.
	ErrCodeCorruptRecord ErrorCode = "CORRUPT_RECORD"
)

// Error is a rejected instruction. All Errors are raised before any state
// changes commit.
type Error struct {
	Code    ErrorCode
	Message string
	Task    ir.Address
	Err     error
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrUnauthorized       = &Error{Code: ErrCodeUnauthorized}
	ErrInvalidSignature   = &Error{Code: ErrCodeInvalidSignature}
	ErrRecordNotFound     = &Error{Code: ErrCodeRecordNotFound}
	ErrDuplicateRecord    = &Error{Code: ErrCodeDuplicateRecord}
	ErrContentTooLarge    = &Error{Code: ErrCodeContentTooLarge}
	ErrInsufficientFunds  = &Error{Code: ErrCodeInsufficientFunds}
	ErrInvalidInstruction = &Error{Code: ErrCodeInvalidInstruction}
	ErrCorruptRecord      = &Error{Code: ErrCodeCorruptRecord}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if !e.Task.IsZero() {
		msg += fmt.Sprintf(" (task=%s)", e.Task)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsUnauthorized reports whether err is an owner mismatch or a bad signature.
func IsUnauthorized(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeUnauthorized || code == ErrCodeInvalidSignature
}

// IsNotFound reports whether err is ErrCodeRecordNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeRecordNotFound
}

// IsDuplicate reports whether err is ErrCodeDuplicateRecord.
func IsDuplicate(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateRecord
}

// metricLabel turns an error into a Prometheus label value.
func metricLabel(err error) string {
	if code := CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

func newError(code ErrorCode, task ir.Address, format string, args ...any) *Error {
	return &Error{Code: code, Task: task, Message: fmt.Sprintf(format, args...)}
}
