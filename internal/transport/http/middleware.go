package http

import (
	"net/http"
	"time"

	"quiz-portal/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionKey       = "session"
	sessionSavedKey  = "session_saved"
	sessionStoredKey = "session_stored"
	sessionMaxAge    = int(30 * 24 * time.Hour / time.Second)
	nameCookieMaxAge = int(365 * 24 * time.Hour / time.Second)
)

// ErrorResponse is the body of failed JSON requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func jsonError(c *gin.Context, status int, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

// sessionMiddleware attaches the browser's session context, creating one on
// first visit. New sessions are checked with the auth provider; signed-in
// sessions have their role reloaded from the profile on every request.
// Changes are persisted after the handler ran.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *session.Context
		if id, err := c.Cookie(session.CookieName); err == nil && id != "" {
			loaded, ok, err := s.Sessions.Load(ctx, id)
			if err != nil {
				s.log.WithError(err).Warn("load session failed")
			}
			if ok {
				sess = loaded
				c.Set(sessionStoredKey, true)
			}
		}
		if sess == nil {
			sess = session.New(uuid.NewString())
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(session.CookieName, sess.ID(), sessionMaxAge, "/", "", s.CookieSecure, true)

		switch {
		case !sess.Bootstrapped():
			if err := s.Gateway.Bootstrap(ctx, sess); err != nil {
				s.log.WithError(err).Info("stored session rejected, signed out")
			}
		case sess.Authenticated():
			s.Gateway.ResolveRole(ctx, sess)
		}

		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(session.WithContext(ctx, sess))
		c.Next()

		if !c.GetBool(sessionSavedKey) {
			s.saveSession(c, sess)
		}
	}
}

// saveSession persists the session now if this request changed it. Anonymous
// sessions are never stored and a stored session that lost its user is
// deleted. Unchanged sessions are not written, so a slow request cannot
// overwrite a concurrent sign-out. Long-lived handlers call it before they
// block.
func (s *Server) saveSession(c *gin.Context, sess *session.Context) {
	c.Set(sessionSavedKey, true)
	if !sess.Dirty() {
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case sess.Authenticated():
		err = s.Sessions.Save(ctx, sess)
	case c.GetBool(sessionStoredKey):
		err = s.Sessions.Delete(ctx, sess.ID())
	default:
		return
	}
	if err != nil {
		s.log.WithError(err).Warn("save session failed")
	}
}

// requireAuth sends anonymous browsers to the login area.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := currentSession(c); sess == nil || !sess.Authenticated() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := currentSession(c); sess == nil || !sess.Authenticated() {
			jsonError(c, http.StatusUnauthorized, "Sign in first")
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Context {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Context)
	return sess
}
