package http

import (
	"net/http"
	"strconv"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"

	"github.com/gin-gonic/gin"
)

type resultsView struct {
	Groups  []app.AnswerGroup
	Quizzes []domain.Quiz
	QuizID  int64
}

type rankingsView struct {
	Rows []domain.UserPoints
}

func (s *Server) myResults(c *gin.Context) {
	sess := currentSession(c)
	answers, err := s.Quizzes.FetchMyAnswers(c.Request.Context(), sess)
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not load your results.")
		return
	}
	page := newPage(sess, AreaResultsMine, "My results")
	page.Data = resultsView{Groups: app.GroupByQuiz(answers)}
	s.render(c, http.StatusOK, page)
}

// adminAnswers loads all visible answers, or those of one quiz when ?quiz is set.
func (s *Server) adminAnswers(c *gin.Context) ([]domain.AnswerView, int64, error) {
	sess := currentSession(c)
	quizID, _ := strconv.ParseInt(c.Query("quiz"), 10, 64)
	if quizID > 0 {
		answers, err := s.Quizzes.FetchQuizAnswers(c.Request.Context(), sess, quizID)
		return answers, quizID, err
	}
	answers, err := s.Quizzes.FetchAllAnswers(c.Request.Context(), sess)
	return answers, 0, err
}

func (s *Server) adminResults(c *gin.Context) {
	sess := currentSession(c)
	if !sess.IsAdmin() {
		s.renderStatus(c, http.StatusForbidden, "Only admins can see all results.")
		return
	}
	answers, quizID, err := s.adminAnswers(c)
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not load results.")
		return
	}
	quizzes, err := s.Quizzes.ListQuizzes(c.Request.Context(), domain.OrderNewest)
	if err != nil {
		s.log.WithError(err).Warn("quiz filter list unavailable")
	}
	page := newPage(sess, AreaResultsAdmin, "All results")
	page.Data = resultsView{Groups: app.GroupByQuiz(answers), Quizzes: quizzes, QuizID: quizID}
	s.render(c, http.StatusOK, page)
}

func (s *Server) exportResults(c *gin.Context) {
	if !currentSession(c).IsAdmin() {
		s.renderStatus(c, http.StatusForbidden, "Only admins can export results.")
		return
	}
	answers, _, err := s.adminAnswers(c)
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not export results.")
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="answers.csv"`)
	c.Status(http.StatusOK)
	if err := app.ExportAnswersCSV(c.Writer, answers); err != nil {
		s.log.WithError(err).Error("csv export failed")
	}
}

func (s *Server) showRankings(c *gin.Context) {
	rows, err := s.Rankings.Leaderboard(c.Request.Context(), app.LeaderboardSize)
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not load rankings.")
		return
	}
	page := newPage(currentSession(c), AreaRankings, "Rankings")
	page.Data = rankingsView{Rows: rows}
	s.render(c, http.StatusOK, page)
}
