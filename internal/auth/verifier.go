// Package auth turns an opaque credential into a user identity or a typed
// failure. It holds no connection state.
package auth

import (
	"fmt"

	"github.com/avoronov/huddle/internal/domain"
)

// Reason classifies why an admission was refused. Each reason is
// user-visible: the client decides between re-login and retry based on it.
type Reason string

const (
	MissingCredential   Reason = "missing_credential"
	CredentialExpired   Reason = "credential_expired"
	CredentialInvalid   Reason = "credential_invalid"
	VerifierUnavailable Reason = "verifier_unavailable"
)

// Failure is fatal to the connection attempt: the transport is closed and
// the gateway does not retry.
type Failure struct {
	Reason Reason
}

func (f *Failure) Error() string {
	return fmt.Sprintf("auth failure: %s", f.Reason)
}

// Verifier validates an opaque credential string exactly once, at connect
// time. There is no per-event re-authentication.
type Verifier interface {
	Verify(credential string) (domain.Identity, error)
}
