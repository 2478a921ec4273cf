package entity

import (
	"errors"
)

var (
	ErrConflict        = errors.New("conflict")
	ErrState           = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failure")
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var (
	ErrRoleUnknown       = errors.New("unknown role")
	ErrChallengeMismatch = errors.New("challenge code mismatch")
	ErrCodeRejected      = errors.New("one-time code rejected")
	ErrCodeIncomplete    = errors.New("one-time code is incomplete")
	ErrResendNotReady    = errors.New("resend countdown is still running")
	ErrSubmitPending     = errors.New("submission already pending")
	ErrLeadNameEmpty     = errors.New("lead name is empty")
	ErrUnknownMessage    = errors.New("unknown message type")
	ErrSubDealerInvalid  = errors.New("sub-dealer details are invalid")
	ErrNetworkFull       = errors.New("sub-dealer network is full")
)

// ExternalServiceError carries the upstream status of a failed AI call.
type ExternalServiceError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}

	return e.Operation + ": " + ErrExternalService.Error()
}

func (e *ExternalServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternalService, e.Err}
	}

	return []error{ErrExternalService}
}
