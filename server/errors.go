package server

import (
	"errors"
	"net/http"

	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
)

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

func badRequest(msg string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: msg}
}

// statusFor maps an error to the status code and client-facing message.
func statusFor(err error) (int, string) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status, he.Error()
	}

	var se *storage.Error
	if errors.As(err, &se) {
		switch se.Type {
		case storage.ErrNotFound:
			return http.StatusNotFound, se.Message
		case storage.ErrInvalidInput:
			return http.StatusBadRequest, se.Message
		case storage.ErrAlreadyExists:
			return http.StatusConflict, se.Message
		}
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}

	var ie *recurrence.InstantError
	switch {
	case errors.As(err, &ie):
		return http.StatusBadRequest, ie.Error()
	case errors.Is(err, recurrence.ErrInvertedRange):
		return http.StatusBadRequest, "startDate must not be after endDate"
	case errors.Is(err, recurrence.ErrBeyondHorizon):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, recurrence.ErrUnsupportedRule):
		return http.StatusUnprocessableEntity, err.Error()
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
