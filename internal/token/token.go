// Package token issues and verifies the signed bearer tokens that carry an
// authenticated identity between requests. Tokens are HS256 JWTs with the
// claims sub (account email), user_id, role, iat and exp. Verification
// collapses every failure mode into a single negative result toward the
// client; an internal reason survives for logging and metrics only.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reason classifies why a token failed verification. Reasons are for
// operational logging and metrics only and must never reach the wire; every
// rejected token looks identical to the client.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMalformed    Reason = "malformed"
	ReasonExpired      Reason = "expired"
	ReasonBadSignature Reason = "bad_signature"
	ReasonMissingClaim Reason = "missing_claim"
	ReasonInvalid      Reason = "invalid"
)

// Claims is the claim set embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Codec issues and verifies tokens with a shared symmetric secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures optional Codec behavior.
type Option func(*Codec)

// WithClock replaces the codec's time source. Used by tests to simulate
// token expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a token codec with the given signing secret and default
// token lifetime.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) *Codec {
	c := &Codec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for the given account with the codec's default TTL.
func (c *Codec) Issue(subject string, userID int64, role string) (string, error) {
	return c.IssueWithTTL(subject, userID, role, c.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime. Issued-at and expiry
// are taken from the codec clock, so two calls with identical claims at
// different instants produce different tokens.
func (c *Codec) IssueWithTTL(subject string, userID int64, role string, ttl time.Duration) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Role:   role,
	})
	return tok.SignedString(c.secret)
}

// Verify decodes and validates a token against the codec secret and clock.
// It returns the claims and true only when the signature verifies, the token
// has not expired, the sub and exp claims are present, and user_id (when
// present) is an integer. Every failure returns (nil, false); decoding faults
// never escape to the caller.
func (c *Codec) Verify(raw string) (*Claims, bool) {
	claims, reason := c.VerifyWithReason(raw)
	return claims, reason == ReasonNone
}

// VerifyWithReason is Verify with an internal classification of the failure.
// On success the reason is ReasonNone.
func (c *Codec) VerifyWithReason(raw string) (*Claims, Reason) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return nil, classify(err)
	}

	if claims.Subject == "" {
		return nil, ReasonMissingClaim
	}

	return claims, ReasonNone
}

// classify maps a jwt parse error onto a Reason. Expiry is checked before
// the signature so an expired token from a legitimate client is not logged
// as a forgery.
func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ReasonMissingClaim
	default:
		return ReasonInvalid
	}
}
