package fetch

import (
	"errors"
	"fmt"

	"github.com/wanderdata/tripfetch/pkg/store"
)

// Common errors returned by the client.
var (
	// ErrQuotaBlocked is returned when the quota tracker refuses a request
	// before it is sent.
	ErrQuotaBlocked = errors.New("request blocked: quota critical")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting out the pacing delay.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError carries the classified outcome of a failed source request.
type APIError struct {
	Source     string
	StatusCode int
	Kind       store.FailureKind
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v",
			e.Source, e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s",
		e.Source, e.Kind, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
