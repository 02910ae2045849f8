package auth

import (
	"context"

	"quiz-portal/internal/domain"
)

// Session is what a successful password sign-in yields.
type Session struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

// SignUpResult reports a registration attempt. Existing is set when an identity
// for the email already exists; no new account was created in that case.
// Session is set when the provider confirms accounts without an emailed link.
type SignUpResult struct {
	User     domain.User
	Existing bool
	Session  *Session
}

// Provider is the hosted identity service.
// SignIn returns domain.ErrInvalidCredentials for unknown emails and wrong passwords.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password, redirectURL string) (SignUpResult, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (domain.User, error)
}
