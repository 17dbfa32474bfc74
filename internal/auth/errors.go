package auth

import "errors"

// Sentinel errors of the auth layer. Handlers map these to HTTP statuses;
// ErrUnauthenticated becomes 401, ErrForbidden 403. Everything the service
// cannot attribute to the caller stays an opaque internal error.
var (
	// ErrUnauthenticated covers every absent, malformed, expired, forged or
	// unverifiable credential. The causes are deliberately not distinguished
	// on the wire.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the identity is valid but lacks the rights for the
	// requested operation, including deactivated accounts.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials is returned by login paths on a wrong email or
	// password pair. Handlers map it to 401 without saying which was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned by registration when the address already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotEligible is returned by the bootstrap endpoint when the secret
	// does not match or bootstrap is not configured.
	ErrNotEligible = errors.New("not eligible")
)

// TokenError is an ErrUnauthenticated carrying the internal classification of
// the rejected credential (expired, bad_signature, unknown_subject, ...).
// The reason is for WARN logs and failure counters only; clients always see
// the same opaque 401.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	return "unauthenticated: " + e.Reason
}

func (e *TokenError) Unwrap() error {
	return ErrUnauthenticated
}
