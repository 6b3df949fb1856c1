package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrMissingCredential  = fmt.Errorf("%w: credential is missing", ErrUnauthorized)
	ErrForbiddenRole      = fmt.Errorf("%w: role is not allowed", ErrUnauthorized)
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrUnknownEvent       = fmt.Errorf("%w: unknown event", ErrInvalidPayload)
	ErrNotParticipant     = fmt.Errorf("%w: reader is not a participant of the conversation", ErrInvalidPayload)
	ErrPersistence        = fmt.Errorf("persistence failure")
	ErrSessionClosed      = fmt.Errorf("session closed")
	ErrSinkFull           = fmt.Errorf("session outbox is full")
	ErrRegistryClosed     = fmt.Errorf("presence registry closed")
	ErrInvalidTransition  = fmt.Errorf("invalid session transition")
	ErrIdentityAlreadySet = fmt.Errorf("session identity already set")
	ErrLifecycleStopped   = fmt.Errorf("lifecycle worker stopped")
	ErrLifecycleBusy      = fmt.Errorf("too many pending session registrations")
)

// MapToHTTPStatus translates a domain error into the status returned by the ingestion API.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrForbiddenRole):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrPersistence):
		return http.StatusBadGateway
	case errors.Is(err, ErrLifecycleStopped), errors.Is(err, ErrLifecycleBusy),
		errors.Is(err, ErrRegistryClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
