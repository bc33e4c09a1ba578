package portal

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abhisek/mocktest/internal/exam"
)

// APIError is a non-2xx response from the portal.
type APIError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("portal: %d %s", e.Status, msg)
}

// Is lets errors.Is(err, exam.ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == exam.ErrNotFound && e.Status == http.StatusNotFound
}

// Transient reports whether retrying the request may succeed.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ErrUnavailable indicates the portal could not be reached.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("portal unavailable: %v", e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the portal.
func IsNotFound(err error) bool {
	return errors.Is(err, exam.ErrNotFound)
}

// IsConflict reports whether err is a 409, returned when the student has
// no attempts left.
func IsConflict(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusConflict
}
