package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrStorageFailure     = fmt.Errorf("message could not be persisted")
	ErrMalformedEvent     = fmt.Errorf("malformed event")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrNotAnnounced       = fmt.Errorf("connection has not announced an identity")
	ErrIdentityMismatch   = fmt.Errorf("identity does not match the authenticated user")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrSlowConsumer       = fmt.Errorf("connection send buffer is full")
	ErrRateLimited        = fmt.Errorf("too many events")
	ErrUnsupportedMedia   = fmt.Errorf("only images and videos can be attached")
	ErrMediaTooLarge      = fmt.Errorf("media exceeds the maximum upload size")
	ErrMediaNotFound      = fmt.Errorf("media not found")
	ErrUnauthorized       = fmt.Errorf("missing or invalid token")
	ErrInvalidConfigField = fmt.Errorf("invalid configuration")
)

// Code is the stable identifier sent to clients inside an error event.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrMalformedEvent):
		return "malformed_event"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, ErrNotAnnounced):
		return "not_announced"
	case errors.Is(err, ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnsupportedMedia):
		return "unsupported_media"
	case errors.Is(err, ErrMediaTooLarge):
		return "media_too_large"
	case errors.Is(err, ErrMediaNotFound):
		return "media_not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrIdentityMismatch):
		return http.StatusForbidden
	case errors.Is(err, ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrMediaTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
