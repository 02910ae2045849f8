package http

import (
	"net/http"

	"quiz-portal/internal/auth"
	"quiz-portal/internal/domain"

	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type loginView struct {
	Email string
}

func (s *Server) showLogin(c *gin.Context) {
	sess := currentSession(c)
	if sess.Authenticated() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.render(c, http.StatusOK, newPage(sess, AreaLogin, "Sign in"))
}

func (s *Server) login(c *gin.Context) {
	sess := currentSession(c)
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderStatus(c, http.StatusBadRequest, "Could not read the login form.")
		return
	}

	outcome, err := s.Gateway.SignInOrRegister(c.Request.Context(), sess, form.Email, form.Password)
	if outcome == auth.OutcomeSignedIn {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	page := newPage(sess, AreaLogin, "Sign in")
	page.Data = loginView{Email: auth.NormalizeEmail(form.Email)}
	status := http.StatusOK
	switch {
	case err == nil:
		page.Status = outcome.Status()
	case outcome != auth.OutcomeNone:
		page.Status = outcome.Status()
		status = http.StatusUnauthorized
	default:
		if verr, ok := domain.IsValidation(err); ok {
			page.Status = auth.MissingFieldsStatus
			page.Errors = verr.Fields
			status = http.StatusUnprocessableEntity
			break
		}
		_ = c.Error(err)
		page.Status = "Sign-in failed. Try again later."
		status = http.StatusBadGateway
	}
	s.render(c, status, page)
}

func (s *Server) logout(c *gin.Context) {
	s.Gateway.Logout(c.Request.Context(), currentSession(c))
	c.Redirect(http.StatusSeeOther, "/login")
}
