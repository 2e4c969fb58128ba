package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch on it without inspecting messages.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidToken      Kind = "INVALID_TOKEN"
	KindExpiredToken      Kind = "EXPIRED_TOKEN"
	KindInvalidCode       Kind = "INVALID_CODE"
	KindAlreadyEnrolled   Kind = "ALREADY_ENROLLED"
	KindUnknownEnrollment Kind = "UNKNOWN_ENROLLMENT"
	KindProvider          Kind = "PROVIDER_ERROR"
	KindDataAccess        Kind = "DATA_ACCESS_ERROR"
	KindUpload            Kind = "UPLOAD_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// Error is the tagged error carried across service boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidToken      = &Error{Kind: KindInvalidToken}
	ErrExpiredToken      = &Error{Kind: KindExpiredToken}
	ErrInvalidCode       = &Error{Kind: KindInvalidCode}
	ErrAlreadyEnrolled   = &Error{Kind: KindAlreadyEnrolled}
	ErrUnknownEnrollment = &Error{Kind: KindUnknownEnrollment}
	ErrProvider          = &Error{Kind: KindProvider}
	ErrDataAccess        = &Error{Kind: KindDataAccess}
	ErrUpload            = &Error{Kind: KindUpload}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrConflict          = &Error{Kind: KindConflict}
)

// E builds a tagged error. err may be nil.
func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// PublicMessage is the text safe to show to a client. The wrapped cause is omitted.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultMessage(e.Kind)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

func defaultMessage(kind Kind) string {
	switch kind {
	case KindUnauthenticated:
		return "not authenticated"
	case KindForbidden:
		return "not authorized"
	case KindInvalidToken:
		return "invalid token"
	case KindExpiredToken:
		return "token has expired"
	case KindInvalidCode:
		return "invalid verification code"
	case KindAlreadyEnrolled:
		return "user already exists"
	case KindUnknownEnrollment:
		return "unknown two-factor enrollment"
	case KindProvider:
		return "verification provider error"
	case KindDataAccess:
		return "data access error"
	case KindUpload:
		return "upload failed"
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindConflict:
		return "conflict"
	default:
		return "internal error"
	}
}
