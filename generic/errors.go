/*
errors.go - Centralized error types for the aggregation engine

PURPOSE:
  The engine itself never fails on data: missing periods are zero and
  uncomputable ratios are null. Errors exist only for callers that want to
  reject a malformed selection before computing (e.g. the HTTP layer).

ERROR CATEGORIES:
  1. Selection errors - malformed period keys, unknown granularities

USAGE:
  if err := generic.ValidateSelection(generic.GranularityQuarterly, key); err != nil {
      if errors.Is(err, generic.ErrInvalidPeriodKey) { ... 400 ... }
  }

SEE ALSO:
  - slice.go: ValidateSelection
  - api/handlers.go: maps these errors to HTTP statuses
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriodKey is returned when a selection key does not match the
	// format of its granularity ("YYYY-MM", "YYYY-QN", "YYYY-MM-DD").
	ErrInvalidPeriodKey = errors.New("invalid period key")

	// ErrUnknownGranularity is returned for anything other than
	// weekly, monthly, quarterly or ytd.
	ErrUnknownGranularity = errors.New("unknown granularity")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SelectionError reports which selection was rejected.
type SelectionError struct {
	Granularity Granularity
	Key         string
	Err         error
}

func (e *SelectionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Granularity)
	}
	return fmt.Sprintf("%v: %q for %s", e.Err, e.Key, e.Granularity)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriodKey) ||
		errors.Is(err, ErrUnknownGranularity)
}
