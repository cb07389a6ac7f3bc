package domain

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Identity is the caller as verified by the authentication layer.
type Identity struct {
	UserID string
	Name   string
	Image  string
	Admin  bool
}

type identityKey struct{}

// WithIdentity scopes an identity to a single request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Validate checks the user id is usable as a storage key.
func (id Identity) Validate() error { return validUserID(id.UserID) }

func validUserID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(id) > MaxUserIDLength {
		return fmt.Errorf("%w: user id exceeds %d characters", ErrInvalidInput, MaxUserIDLength)
	}
	return nil
}
