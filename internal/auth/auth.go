// Package auth verifies the bearer credentials that gate mutating queries.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrAuthRequired is returned when the Authorization header is absent or malformed
	ErrAuthRequired = errors.New("missing or invalid authorization header")
	// ErrAuthInvalid is returned when the credential fails verification
	ErrAuthInvalid = errors.New("invalid or expired token")
)

// Identity is the verified caller
type Identity struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// Verifier validates an opaque bearer credential
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// BearerToken extracts the credential from an Authorization header value
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrAuthRequired
	}
	return parts[1], nil
}

type identityKey struct{}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, if any
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
