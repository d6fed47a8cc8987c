package ports

import (
	"context"

	"github.com/demotours/tour-builder/internal/core/domain"
)

// AuthResult is returned by register and login: the user plus a signed bearer token.
type AuthResult struct {
	Token string
	User  *domain.User
}

// Identity is what a verified bearer token asserts about its holder.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	TokenVerifier
}

// TokenVerifier checks a bearer token. Any failure is domain.ErrUnauthenticated.
type TokenVerifier interface {
	VerifyToken(token string) (*Identity, error)
}
