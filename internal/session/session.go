package session

import (
	"context"
	"strconv"
	"sync"

	"quiz-portal/internal/domain"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "quiz_session"

// Reader is the read-only view of the current browser session handed to
// everything except the auth gateway.
type Reader interface {
	ID() string
	User() *domain.User
	Role() domain.Role
	IsAdmin() bool
	Authenticated() bool
}

// Context is the session state of one browser. The auth gateway is its only writer.
type Context struct {
	mu           sync.RWMutex
	id           string
	user         *domain.User
	role         domain.Role
	accessToken  string
	refreshToken string
	bootstrapped bool
	dirty        bool
}

// New returns an anonymous session with the default role.
func New(id string) *Context {
	return &Context{id: id, role: domain.RoleUser}
}

func (c *Context) ID() string { return c.id }

func (c *Context) User() *domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Context) Role() domain.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.role == "" {
		return domain.RoleUser
	}
	return c.role
}

func (c *Context) IsAdmin() bool {
	return c.Authenticated() && c.Role() == domain.RoleAdmin
}

func (c *Context) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// AccessToken returns the provider access token for the signed-in user.
func (c *Context) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Bootstrapped reports whether the session check ran for this browser session.
func (c *Context) Bootstrapped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bootstrapped
}

// Dirty reports whether the session changed since it was created or loaded.
func (c *Context) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Set stores the signed-in user and tokens. The role is reset until resolved.
func (c *Context) Set(user domain.User, accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
	c.user = &user
	c.role = domain.RoleUser
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

// SetRole records the role resolved from the user's profile.
func (c *Context) SetRole(role domain.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role != role {
		c.dirty = true
	}
	c.role = role
}

// MarkBootstrapped records that the session check ran.
func (c *Context) MarkBootstrapped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bootstrapped {
		c.dirty = true
	}
	c.bootstrapped = true
}

// Clear drops user, tokens and role.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user != nil || c.accessToken != "" {
		c.dirty = true
	}
	c.user = nil
	c.role = domain.RoleUser
	c.accessToken = ""
	c.refreshToken = ""
}

// Snapshot is the serializable form of a Context, used by session stores.
type Snapshot struct {
	ID           string       `json:"id"`
	User         *domain.User `json:"user,omitempty"`
	Role         domain.Role  `json:"role"`
	AccessToken  string       `json:"accessToken,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	Bootstrapped bool         `json:"bootstrapped"`
}

// Snapshot copies the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		ID:           c.id,
		Role:         c.role,
		AccessToken:  c.accessToken,
		RefreshToken: c.refreshToken,
		Bootstrapped: c.bootstrapped,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

// FromSnapshot rebuilds a Context from stored state.
func FromSnapshot(s Snapshot) *Context {
	c := New(s.ID)
	c.user = s.User
	c.role = domain.ParseRole(string(s.Role))
	c.accessToken = s.AccessToken
	c.refreshToken = s.RefreshToken
	c.bootstrapped = s.Bootstrapped
	return c
}

// Store persists sessions by browser session id.
type Store interface {
	Load(ctx context.Context, id string) (*Context, bool, error)
	Save(ctx context.Context, sess *Context) error
	Delete(ctx context.Context, id string) error
}

// ParticipantNameKey is the per-browser storage key for the display name used on a quiz.
func ParticipantNameKey(quizID int64) string {
	return "quiz_" + strconv.FormatInt(quizID, 10) + "_name"
}

type ctxKey struct{}

// WithContext attaches a session to a request context.
func WithContext(ctx context.Context, sess *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Context)
	return sess, ok
}
