package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the synthesis pipeline. Transient upstream failures are
// absorbed by the retry policy and never reach these; everything here is a
// terminal outcome the caller can act on.

// ErrNoSourceAvailable: synthesis found nothing usable across all sources.
var ErrNoSourceAvailable = errors.New("no nutrition source available")

// ErrSessionTimeout: the per-session deadline passed with every source absent.
var ErrSessionTimeout = errors.New("capture session deadline exceeded")

// ErrClarificationAbandoned: the dialogue hit its turn limit or was
// cancelled. Usually a soft outcome (the pipeline falls back to the flagged
// vision estimate); it surfaces only when no fallback estimate exists.
var ErrClarificationAbandoned = errors.New("clarification abandoned")

// MalformedResponseError reports a model response that failed schema
// validation even after one corrective retry. Non-retryable.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed model response: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is a schema-validation failure.
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}
