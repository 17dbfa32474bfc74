// Package auth implements the identity layer: credential verification,
// token-to-identity resolution, role gating, and the account service the
// HTTP handlers call into.
package auth

import (
	"context"
	"errors"

	"authd/internal/models"
	"authd/internal/storage"
	"authd/internal/token"
)

// Resolver turns a raw bearer token into a live account record. Resolution
// verifies the token, loads the account named by its subject, and cross-checks
// the embedded user ID so a token issued for one account can never resolve to
// another even after re-registration reassigns an address.
type Resolver struct {
	codec *token.Codec
	users storage.Storage
}

// NewResolver creates a resolver over the given codec and user store.
func NewResolver(codec *token.Codec, users storage.Storage) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// Resolve authenticates a raw token and returns the account it names.
//
// Failures split into exactly two externally visible classes. Anything wrong
// with the credential itself (bad signature, expired, unknown subject, stale
// user ID) is ErrUnauthenticated, wrapped in a TokenError whose reason is
// kept for logging; a valid credential for a deactivated account is
// ErrForbidden. Store errors other than not-found propagate as-is so an
// outage is not mistaken for a bad token.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.User, error) {
	claims, reason := r.codec.VerifyWithReason(raw)
	if reason != token.ReasonNone {
		return nil, &TokenError{Reason: string(reason)}
	}

	user, err := r.users.GetUserByEmail(ctx, models.NormalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &TokenError{Reason: "unknown_subject"}
		}
		return nil, err
	}

	if claims.UserID != 0 && claims.UserID != user.ID {
		return nil, &TokenError{Reason: "stale_user_id"}
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	return user, nil
}
