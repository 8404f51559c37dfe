package model

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds shared across packages. Callers match them with errors.Is.
var (
	// ErrSourceUnavailable: one scraping unit exhausted its retries. Non-fatal.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrScoringFailed: one record's enrichment exhausted its retries. Non-fatal.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrStorageTransient: storage kept failing after retries. Fatal for the run.
	ErrStorageTransient = errors.New("storage unavailable")
	// ErrSchemaConflict: a write would need a non-additive schema change.
	ErrSchemaConflict = errors.New("schema conflict")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Validationf builds an error matching ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
