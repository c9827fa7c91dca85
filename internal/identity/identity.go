// Package identity implements email/password sign-in with push notifications of identity changes.
package identity

import (
	"context"
	"errors"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

var (
	ErrNotConfigured      = errors.New("identity: provider is not configured")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrEmailInUse         = errors.New("identity: email already in use")
	ErrUserNotFound       = errors.New("identity: user not found")
)

// Provider is the credential backend behind a session. Identity changes, including ones not caused
// by a local call, are pushed to OnAuthStateChanged listeners; nil means signed out.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (domain.User, error)
	SignUp(ctx context.Context, email, password string) (domain.User, error)
	SignOut(ctx context.Context) error
	OnAuthStateChanged(fn func(*domain.User)) (unsubscribe func())
	CurrentUser() *domain.User
}

// Credentials are validated before any lookup.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}
