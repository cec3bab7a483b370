package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeIndexStale, "fingerprint mismatch")
	assert.Equal(t, ErrCodeIndexStale, err.Code)
	assert.Equal(t, "fingerprint mismatch", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[MATCH_002] fingerprint mismatch", err.Error())
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(ErrCodePoolOverflow, "pool truncated").WithDetail("dropped=42")
	assert.Equal(t, "[MATCH_003] pool truncated: dropped=42", err.Error())

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrCodePersistence, "failed to write leads")
	assert.Equal(t, ErrCodePersistence, err.Code)
	assert.Equal(t, cause, errors.Unwrap(err))

	assert.Nil(t, Wrap(nil, ErrCodePersistence, "nothing"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeIndexStale, "stale")
	outer := Wrap(inner, ErrCodeUnknown, "run failed")
	assert.Equal(t, ErrCodeIndexStale, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeEnrichmentUnavailable, "timeout")
	wrapped := fmt.Errorf("scoring pair: %w", inner)
	assert.True(t, IsCode(wrapped, ErrCodeEnrichmentUnavailable))
	assert.False(t, IsCode(wrapped, ErrCodeIndexStale))
	assert.False(t, IsCode(nil, ErrCodeIndexStale))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeMissingField, GetCode(New(ErrCodeMissingField, "no sex field")))
}

func TestIsRunFatal(t *testing.T) {
	assert.True(t, IsRunFatal(New(ErrCodeIndexStale, "stale")))
	assert.True(t, IsRunFatal(New(ErrCodePersistence, "disk full")))
	assert.False(t, IsRunFatal(New(ErrCodeMissingField, "no height")))
	assert.False(t, IsRunFatal(New(ErrCodePoolOverflow, "truncated")))
	assert.False(t, IsRunFatal(New(ErrCodeEnrichmentUnavailable, "timeout")))
	assert.False(t, IsRunFatal(nil))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "rare-token index is stale", DefaultMessageForCode(ErrCodeIndexStale))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE")))
}
