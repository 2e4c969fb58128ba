package twofactor

import (
	"context"
	"errors"
)

// Provider is the external SMS verification service. The one-time code is
// generated, delivered and checked entirely on the provider's side.
type Provider interface {
	// RegisterUser enrolls a phone and returns the provider handle.
	RegisterUser(ctx context.Context, reg Registration) (string, error)
	// RequestSMS sends a code to the enrolled phone and returns it masked.
	RequestSMS(ctx context.Context, authyID string) (string, error)
	// VerifyToken reports whether code is currently valid for authyID.
	VerifyToken(ctx context.Context, authyID, code string) (bool, error)
	// DeleteUser removes an enrollment. Used to compensate a failed local create.
	DeleteUser(ctx context.Context, authyID string) error
}

// Registration identifies the phone being enrolled.
type Registration struct {
	Email       string
	Cellphone   string
	CountryCode int
}

// ErrUnknownUser is returned by providers when the handle is not recognized.
var ErrUnknownUser = errors.New("provider: unknown user")
