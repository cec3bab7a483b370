package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeUnknown         ErrorCode = "COMMON_000"
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeValidation      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_003"
	ErrCodeTimeout         ErrorCode = "COMMON_004"
	ErrCodeDatabaseError   ErrorCode = "COMMON_005"
	ErrCodeSerialization   ErrorCode = "COMMON_006"
	ErrCodeExternalService ErrorCode = "COMMON_007"

	// CodeOK is the sentinel returned by GetCode for a nil error.
	CodeOK ErrorCode = "OK"
)

// Matching-engine error codes.  The taxonomy distinguishes failures that are
// local to one record or pair (non-fatal, the run continues) from failures
// that invalidate the whole run (fatal, the run aborts incomplete).
const (
	// ErrCodeMissingField marks a field absent on a source record.  Optional
	// fields resolve to the unknown sentinel and a neutral scoring
	// contribution; a record missing its identifier is skipped, logged at
	// debug level only.
	ErrCodeMissingField ErrorCode = "MATCH_001"

	// ErrCodeIndexStale marks a rare-token index whose corpus fingerprint does
	// not match the snapshot being scored.  Fatal to the run.
	ErrCodeIndexStale ErrorCode = "MATCH_002"

	// ErrCodePoolOverflow marks a blocking pool that exceeded the configured
	// cap.  The pool is truncated deterministically and the count logged.
	ErrCodePoolOverflow ErrorCode = "MATCH_003"

	// ErrCodeEnrichmentUnavailable marks an optional graph/vector provider
	// error or timeout.  The signal is dropped for the affected pair.
	ErrCodeEnrichmentUnavailable ErrorCode = "MATCH_004"

	// ErrCodePersistence marks a failure to write run output.  Fatal; the run
	// is marked incomplete rather than silently emitting a partial report.
	ErrCodePersistence ErrorCode = "MATCH_005"

	// ErrCodeCheckpoint marks a failure to read or write the resume
	// checkpoint.  Non-fatal: the run proceeds without resumability.
	ErrCodeCheckpoint ErrorCode = "MATCH_006"
)

// FatalCodes enumerates codes that abort a matching run.  Everything else is
// contained to the record or pair that produced it.
var FatalCodes = map[ErrorCode]bool{
	ErrCodeIndexStale:  true,
	ErrCodePersistence: true,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeUnknown:         "unknown error",
	ErrCodeInternal:        "internal error",
	ErrCodeValidation:      "validation failed",
	ErrCodeNotFound:        "resource not found",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeDatabaseError:   "database error",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeExternalService: "external service error",

	ErrCodeMissingField:          "record field missing",
	ErrCodeIndexStale:            "rare-token index is stale",
	ErrCodePoolOverflow:          "candidate pool truncated",
	ErrCodeEnrichmentUnavailable: "enrichment signal unavailable",
	ErrCodePersistence:           "failed to persist run output",
	ErrCodeCheckpoint:            "checkpoint read/write failed",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}
