package providers

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse is returned when a model answers with nothing
	ErrEmptyResponse = errors.New("empty response")

	// ErrMissingJSON is returned when no JSON object can be found in a response
	ErrMissingJSON = errors.New("expected JSON object in response")

	// ErrMissingField is wrapped by MissingFieldError
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedField is returned when a required key holds an unusable value
	ErrMalformedField = errors.New("malformed field")

	// ErrProviderStatus is wrapped by StatusError
	ErrProviderStatus = errors.New("provider returned error status")
)

// MissingFieldError lists the required keys absent from a judgment
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrMissingField
func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// StatusError reports a non-2xx answer from a provider API
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrProviderStatus
func (e *StatusError) Unwrap() error { return ErrProviderStatus }

// IsParseError reports whether err came from decoding a model's answer
// rather than from calling the model.
func IsParseError(err error) bool {
	return errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMissingJSON) ||
		errors.Is(err, ErrMissingField) || errors.Is(err, ErrMalformedField)
}
