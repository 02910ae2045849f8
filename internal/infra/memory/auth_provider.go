package memory

import (
	"context"
	"sync"
	"time"

	"quiz-portal/internal/auth"
	"quiz-portal/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthProvider is an in-process identity service for development and tests.
// Passwords are bcrypt-hashed and tokens are HS256 JWTs.
type AuthProvider struct {
	secret      string
	autoConfirm bool
	clock       func() time.Time

	mu      sync.RWMutex
	users   map[string]*account
	revoked map[string]struct{}
}

type account struct {
	user domain.User
	hash []byte
}

// NewAuthProvider returns a provider signing tokens with secret. With
// autoConfirm, new accounts skip the emailed confirmation step.
func NewAuthProvider(secret string, autoConfirm bool) *AuthProvider {
	return &AuthProvider{
		secret:      secret,
		autoConfirm: autoConfirm,
		clock:       time.Now,
		users:       make(map[string]*account),
		revoked:     make(map[string]struct{}),
	}
}

var _ auth.Provider = (*AuthProvider)(nil)

func (p *AuthProvider) SignIn(_ context.Context, email, password string) (auth.Session, error) {
	p.mu.RLock()
	acc, ok := p.users[email]
	p.mu.RUnlock()
	if !ok {
		return auth.Session{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return auth.Session{}, domain.ErrInvalidCredentials
	}
	return p.issue(acc.user)
}

func (p *AuthProvider) SignUp(_ context.Context, email, password, _ string) (auth.SignUpResult, error) {
	p.mu.Lock()
	if acc, ok := p.users[email]; ok {
		p.mu.Unlock()
		return auth.SignUpResult{User: acc.user, Existing: true}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		p.mu.Unlock()
		return auth.SignUpResult{}, err
	}
	user := domain.User{ID: uuid.NewString(), Email: email}
	if p.autoConfirm {
		now := p.clock()
		user.ConfirmedAt = &now
	}
	p.users[email] = &account{user: user, hash: hash}
	p.mu.Unlock()

	res := auth.SignUpResult{User: user}
	if p.autoConfirm {
		s, err := p.issue(user)
		if err != nil {
			return auth.SignUpResult{}, err
		}
		res.Session = &s
	}
	return res, nil
}

func (p *AuthProvider) SignOut(_ context.Context, accessToken string) error {
	claims, err := auth.ValidateToken(accessToken, p.secret)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.revoked[claims.ID] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *AuthProvider) GetUser(_ context.Context, accessToken string) (domain.User, error) {
	claims, err := auth.ValidateToken(accessToken, p.secret)
	if err != nil {
		return domain.User{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.revoked[claims.ID]; ok {
		return domain.User{}, auth.ErrInvalidToken
	}
	acc, ok := p.users[claims.Email]
	if !ok || acc.user.ID != claims.Subject {
		return domain.User{}, auth.ErrInvalidToken
	}
	return acc.user, nil
}

// Confirm marks the email as confirmed, standing in for the emailed link.
func (p *AuthProvider) Confirm(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.users[email]
	if !ok {
		return false
	}
	now := p.clock()
	acc.user.ConfirmedAt = &now
	return true
}

func (p *AuthProvider) issue(user domain.User) (auth.Session, error) {
	pair, err := auth.IssueTokens(user.ID, user.Email, p.secret, p.clock())
	if err != nil {
		return auth.Session{}, err
	}
	return auth.Session{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
