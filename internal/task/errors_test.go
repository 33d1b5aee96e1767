package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/taskstore/internal/ir"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := newError(ErrCodeDuplicateRecord, ir.Address{1}, "exists")

	assert.ErrorIs(t, err, ErrDuplicateRecord)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrDuplicateRecord)
}

func TestErrorMessage(t *testing.T) {
	err := newError(ErrCodeRecordNotFound, ir.Address{0xab}, "no task at address")
	assert.Contains(t, err.Error(), "RECORD_NOT_FOUND: no task at address")
	assert.Contains(t, err.Error(), "task=ab00")

	bare := &Error{Code: ErrCodeUnauthorized}
	assert.Equal(t, "UNAUTHORIZED", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &Error{Code: ErrCodeInsufficientFunds, Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrUnauthorized))
	assert.True(t, IsUnauthorized(ErrInvalidSignature))
	assert.False(t, IsUnauthorized(ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrRecordNotFound)))
	assert.True(t, IsDuplicate(ErrDuplicateRecord))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestMetricLabel(t *testing.T) {
	assert.Equal(t, "content_too_large", metricLabel(ErrContentTooLarge))
	assert.Equal(t, "error", metricLabel(errors.New("disk full")))
}
