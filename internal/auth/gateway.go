package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/events"
	"quiz-portal/internal/session"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of a combined sign-in/registration attempt.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSignedIn
	OutcomeRegistered
	OutcomeWrongPassword
	OutcomeEmailNotConfirmed
)

// Status is the message shown under the login form.
func (o Outcome) Status() string {
	switch o {
	case OutcomeSignedIn:
		return "Signed in."
	case OutcomeRegistered:
		return "Account created! Check your email for a confirmation link."
	case OutcomeWrongPassword:
		return "Wrong password. Try again."
	case OutcomeEmailNotConfirmed:
		return "Your email is not confirmed yet. Check your inbox."
	default:
		return ""
	}
}

// MissingFieldsStatus is shown when email or password is blank.
const MissingFieldsStatus = "Enter both email and password."

// Gateway is the only writer of session state. It signs users in and out,
// revalidates sessions and resolves roles from profiles.
type Gateway struct {
	provider    Provider
	profiles    app.ProfileStore
	hub         *events.Hub
	redirectURL string
	log         *logrus.Entry
}

func NewGateway(provider Provider, profiles app.ProfileStore, hub *events.Hub, redirectURL string, log *logrus.Entry) *Gateway {
	return &Gateway{
		provider:    provider,
		profiles:    profiles,
		hub:         hub,
		redirectURL: redirectURL,
		log:         log.WithField("component", "auth_gateway"),
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignInOrRegister signs the user in, registering the email when no account
// matches. An existing account with a different password yields
// OutcomeWrongPassword.
func (g *Gateway) SignInOrRegister(ctx context.Context, sess *session.Context, email, password string) (Outcome, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		verr := &domain.ValidationError{}
		if email == "" {
			verr.Add("email", MissingFieldsStatus)
		}
		if password == "" {
			verr.Add("password", MissingFieldsStatus)
		}
		return OutcomeNone, verr
	}

	log := g.log.WithField("email", email)
	signedIn, err := g.provider.SignIn(ctx, email, password)
	switch {
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return OutcomeEmailNotConfirmed, domain.ErrEmailNotConfirmed
	case errors.Is(err, domain.ErrInvalidCredentials):
		return g.register(ctx, sess, email, password)
	case err != nil:
		return OutcomeNone, fmt.Errorf("sign in: %w", err)
	}

	if !signedIn.User.Confirmed() {
		if err := g.provider.SignOut(ctx, signedIn.AccessToken); err != nil {
			log.WithError(err).Warn("sign out of unconfirmed user failed")
		}
		return OutcomeEmailNotConfirmed, domain.ErrEmailNotConfirmed
	}

	g.establish(ctx, sess, signedIn)
	log.WithField("user_id", signedIn.User.ID).Info("user signed in")
	return OutcomeSignedIn, nil
}

func (g *Gateway) register(ctx context.Context, sess *session.Context, email, password string) (Outcome, error) {
	res, err := g.provider.SignUp(ctx, email, password, g.redirectURL)
	if err != nil {
		return OutcomeNone, fmt.Errorf("sign up: %w", err)
	}
	if res.Existing {
		return OutcomeWrongPassword, domain.ErrWrongPassword
	}

	g.log.WithFields(logrus.Fields{"email": email, "user_id": res.User.ID}).Info("user registered")
	if res.Session != nil && res.User.Confirmed() {
		g.establish(ctx, sess, *res.Session)
		return OutcomeSignedIn, nil
	}
	return OutcomeRegistered, nil
}

func (g *Gateway) establish(ctx context.Context, sess *session.Context, s Session) {
	sess.Set(s.User, s.AccessToken, s.RefreshToken)
	sess.MarkBootstrapped()
	g.ResolveRole(ctx, sess)
	g.publish(sess, events.TypeSignedIn)
}

// Bootstrap revalidates the stored session with the provider. It fails closed:
// any provider error or an unconfirmed email signs the browser out and resets
// the role to user.
func (g *Gateway) Bootstrap(ctx context.Context, sess *session.Context) error {
	defer sess.MarkBootstrapped()

	token := sess.AccessToken()
	if token == "" {
		sess.Clear()
		return nil
	}

	user, err := g.provider.GetUser(ctx, token)
	if err != nil {
		g.signOutQuietly(ctx, token)
		sess.Clear()
		return fmt.Errorf("session check: %w", err)
	}
	if !user.Confirmed() {
		g.signOutQuietly(ctx, token)
		sess.Clear()
		return domain.ErrEmailNotConfirmed
	}

	snap := sess.Snapshot()
	sess.Set(user, snap.AccessToken, snap.RefreshToken)
	g.ResolveRole(ctx, sess)
	return nil
}

// ResolveRole loads the user's role from their profile, creating a profile
// with role user when none exists. Lookup failures fall back to user.
func (g *Gateway) ResolveRole(ctx context.Context, sess *session.Context) domain.Role {
	user := sess.User()
	if user == nil {
		sess.SetRole(domain.RoleUser)
		return domain.RoleUser
	}

	log := g.log.WithField("user_id", user.ID)
	profile, err := g.profiles.GetProfile(ctx, user.ID)
	switch {
	case errors.Is(err, domain.ErrNoRows):
		if err := g.profiles.InsertProfile(ctx, domain.Profile{ID: user.ID, Email: user.Email, Role: domain.RoleUser}); err != nil {
			log.WithError(err).Error("profile create failed")
		}
		sess.SetRole(domain.RoleUser)
		return domain.RoleUser
	case err != nil:
		log.WithError(err).Warn("profile lookup failed")
		sess.SetRole(domain.RoleUser)
		return domain.RoleUser
	}

	role := domain.ParseRole(string(profile.Role))
	sess.SetRole(role)
	return role
}

// Logout signs out with the provider and clears the session. Provider errors
// are logged only.
func (g *Gateway) Logout(ctx context.Context, sess *session.Context) {
	if token := sess.AccessToken(); token != "" {
		g.signOutQuietly(ctx, token)
	}
	wasSignedIn := sess.Authenticated()
	sess.Clear()
	if wasSignedIn {
		g.publish(sess, events.TypeSignedOut)
	}
}

func (g *Gateway) signOutQuietly(ctx context.Context, token string) {
	if err := g.provider.SignOut(ctx, token); err != nil {
		g.log.WithError(err).Warn("provider sign out failed")
	}
}

func (g *Gateway) publish(sess *session.Context, typ string) {
	if g.hub == nil {
		return
	}
	payload := map[string]any{"role": sess.Role()}
	if u := sess.User(); u != nil {
		payload["email"] = u.Email
	}
	g.hub.Publish(events.SessionTopic(sess.ID()), typ, payload)
}
