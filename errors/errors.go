package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling.
// None of these are fatal inside the reply pipeline: each one degrades to the
// next fallback stage and is surfaced to callers only for logging or HTTP mapping.

var (
	// ErrNotFound indicates a lookup produced nothing (no correction, table or row)
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input, such as an empty sentence
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigurationMissing indicates a required collaborator was not configured
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrCorpusRowInvalid indicates a knowledge table row could not be registered
	ErrCorpusRowInvalid = errors.New("corpus row invalid")

	// ErrServiceUnavailable indicates a required service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")
)

// WrapError wraps an error with context message
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// WrapCause tags cause with a category, keeping both in the chain so
// errors.Is matches the category and errors.As still reaches the cause.
func WrapCause(category, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", message, cause, category)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigurationMissing checks if error reports a missing collaborator
func IsConfigurationMissing(err error) bool {
	return errors.Is(err, ErrConfigurationMissing)
}

// IsCorpusRowInvalid checks if error reports a skipped corpus row
func IsCorpusRowInvalid(err error) bool {
	return errors.Is(err, ErrCorpusRowInvalid)
}

// IsServiceUnavailable checks if error is a service unavailable error
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
