package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/session"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// Area is one mutually exclusive section of the UI.
type Area string

const (
	AreaList         Area = "list"
	AreaCreate       Area = "create"
	AreaTake         Area = "take"
	AreaResultsMine  Area = "results-mine"
	AreaResultsAdmin Area = "results-admin"
	AreaRankings     Area = "rankings"
	AreaLogin        Area = "login"
)

// Page is the view model of every rendered document. Exactly one area is visible.
type Page struct {
	Area          Area
	Title         string
	Email         string
	Role          domain.Role
	IsAdmin       bool
	Authenticated bool
	Status        string
	Errors        map[string]string
	Data          any
}

func (p Page) Visible(area string) bool {
	return string(p.Area) == area
}

// UserBadge is the label in the navigation bar.
func (p Page) UserBadge() string {
	if p.Email == "" {
		return "Guest"
	}
	return p.Email
}

// Error returns the inline message for a form field.
func (p Page) Error(field string) string {
	return p.Errors[field]
}

func newPage(sess session.Reader, area Area, title string) Page {
	p := Page{Area: area, Title: title, Role: domain.RoleUser}
	if sess == nil {
		return p
	}
	p.Role = sess.Role()
	p.IsAdmin = sess.IsAdmin()
	p.Authenticated = sess.Authenticated()
	if u := sess.User(); u != nil {
		p.Email = u.Email
	}
	return p
}

var templateFuncs = template.FuncMap{
	"fieldKey": app.FieldKey,
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"medal": func(rank int) string {
		switch rank {
		case 1:
			return "🥇"
		case 2:
			return "🥈"
		case 3:
			return "🥉"
		}
		return fmt.Sprintf("#%d", rank)
	},
	"inc": func(i int) int { return i + 1 },
	"when": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"verdict": func(isCorrect *bool) string {
		switch {
		case isCorrect == nil:
			return "ungraded"
		case *isCorrect:
			return "correct"
		default:
			return "incorrect"
		}
	},
	// attribution markup is built server-side by Server.attribute with every
	// field escaped
	"trusted": func(s string) template.HTML { return template.HTML(s) },
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

func (s *Server) render(c *gin.Context, status int, page Page) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(c.Writer, "layout", page); err != nil {
		s.log.WithError(err).WithField("area", page.Area).Error("render page failed")
	}
}

// renderStatus renders a page with only a status banner and no area.
func (s *Server) renderStatus(c *gin.Context, status int, message string) {
	page := newPage(currentSession(c), "", http.StatusText(status))
	page.Status = message
	s.render(c, status, page)
}
