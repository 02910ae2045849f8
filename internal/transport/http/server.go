package http

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/auth"
	"quiz-portal/internal/events"
	"quiz-portal/internal/images"
	"quiz-portal/internal/metrics"
	"quiz-portal/internal/movies"
	"quiz-portal/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MovieSearcher suggests movie titles.
type MovieSearcher interface {
	SearchTitles(ctx context.Context, query string) []movies.Title
}

// QuestionBuilder generates movie-rating questions.
type QuestionBuilder interface {
	BuildMultipleChoice(ctx context.Context, title string) (movies.GeneratedQuestion, error)
	BuildTextAnswer(ctx context.Context, title string) (movies.GeneratedQuestion, error)
}

// ImageSearcher finds attributable photos.
type ImageSearcher interface {
	Search(ctx context.Context, query string, count int) []images.Image
	AttributionMarkup(img images.Image) template.HTML
}

// DefaultAllowedOrigins are the cross-origin callers accepted when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}

// Deps are the collaborators of the web server. Movies, Questions, Images and
// Gatherer are optional; their endpoints are not registered when nil.
// AllowedOrigins are the cross-origin callers trusted by CORS and /ws.
type Deps struct {
	Quizzes        *app.QuizService
	Rankings       *app.Rankings
	Gateway        *auth.Gateway
	Sessions       session.Store
	Hub            *events.Hub
	Movies         MovieSearcher
	Questions      QuestionBuilder
	Images         ImageSearcher
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Log            *logrus.Entry
	CookieSecure   bool
	AllowedOrigins []string
}

// Server holds the handlers of the quiz portal.
type Server struct {
	Deps
	log       *logrus.Entry
	templates *template.Template
	upgrader  websocket.Upgrader
	now       func() time.Time
}

func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = DefaultAllowedOrigins
	}
	s := &Server{
		Deps:      deps,
		log:       log.WithField("component", "http"),
		templates: parseTemplates(),
		now:       time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin accepts same-origin pages, allow-listed origins and clients
// that send no Origin header.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Router registers every route on a new gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.Metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Origin", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	web := r.Group("/", s.sessionMiddleware())
	web.GET("/login", s.showLogin)
	web.POST("/login", s.login)
	web.POST("/logout", s.logout)
	web.GET("/ws", s.serveEvents)

	pages := web.Group("/", s.requireAuth())
	pages.GET("/", s.listQuizzes)
	pages.GET("/quizzes/new", s.newQuiz)
	pages.POST("/quizzes", s.createQuiz)
	pages.GET("/quizzes/:id", s.takeQuiz)
	pages.POST("/quizzes/:id/name", s.setParticipantName)
	pages.POST("/quizzes/:id/answers", s.submitAnswers)
	pages.GET("/results", s.myResults)
	pages.GET("/admin/results", s.adminResults)
	pages.GET("/admin/results.csv", s.exportResults)
	pages.GET("/rankings", s.showRankings)

	api := web.Group("/api", s.requireAPIAuth())
	if s.Movies != nil {
		api.GET("/movies/search", s.searchMovies)
	}
	if s.Questions != nil {
		api.POST("/movies/question", s.generateQuestion)
	}
	if s.Images != nil {
		api.GET("/images/search", s.searchImages)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last().Err).Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
