package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/session"

	"github.com/gin-gonic/gin"
)

type listView struct {
	Quizzes []domain.Quiz
	Order   domain.QuizOrder
}

type takeView struct {
	Quiz            domain.Quiz
	NameStep        bool
	ParticipantName string
	Submitted       map[int64]string
	Results         map[int64]domain.QuestionResult
	Feedback        bool
	Correct         int
	Graded          int
	Accuracy        float64
}

func (v takeView) Answer(questionID int64) string {
	return v.Submitted[questionID]
}

func (v takeView) Answered(questionID int64) bool {
	_, ok := v.Results[questionID]
	return ok
}

func (v takeView) Checked(questionID, choiceID int64) bool {
	return v.Submitted[questionID] == strconv.FormatInt(choiceID, 10)
}

func (s *Server) listQuizzes(c *gin.Context) {
	order := domain.ParseQuizOrder(c.Query("order"))
	quizzes, err := s.Quizzes.ListQuizzes(c.Request.Context(), order)
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not load quizzes.")
		return
	}
	page := newPage(currentSession(c), AreaList, "Quizzes")
	page.Data = listView{Quizzes: quizzes, Order: order}
	s.render(c, http.StatusOK, page)
}

func (s *Server) newQuiz(c *gin.Context) {
	sess := currentSession(c)
	if !sess.IsAdmin() {
		s.renderStatus(c, http.StatusForbidden, "Only admins can create quizzes.")
		return
	}
	page := newPage(sess, AreaCreate, "New quiz")
	page.Data = newCreateView(domain.QuizDraft{}, 1)
	s.render(c, http.StatusOK, page)
}

func (s *Server) createQuiz(c *gin.Context) {
	sess := currentSession(c)
	if !sess.IsAdmin() {
		s.renderStatus(c, http.StatusForbidden, "Only admins can create quizzes.")
		return
	}

	draft, count := parseDraft(c)
	s.attribute(&draft)
	page := newPage(sess, AreaCreate, "New quiz")
	if c.PostForm("action") == "add_question" {
		page.Data = newCreateView(draft, count+1)
		s.render(c, http.StatusOK, page)
		return
	}

	quiz, err := s.Quizzes.CreateQuiz(c.Request.Context(), sess, draft)
	if err != nil {
		page.Data = newCreateView(draft, count)
		if verr, ok := domain.IsValidation(err); ok {
			page.Errors = verr.Fields
			page.Status = "Fix the highlighted fields."
			s.render(c, http.StatusUnprocessableEntity, page)
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			s.renderStatus(c, http.StatusForbidden, "Only admins can create quizzes.")
			return
		}
		_ = c.Error(err)
		page.Status = "Could not save the quiz. Try again."
		s.render(c, http.StatusInternalServerError, page)
		return
	}
	c.Redirect(http.StatusSeeOther, "/quizzes/"+strconv.FormatInt(quiz.ID, 10))
}

// loadQuiz resolves the :id parameter, rendering 404 when it does not name a quiz.
func (s *Server) loadQuiz(c *gin.Context) (domain.Quiz, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.renderStatus(c, http.StatusNotFound, "Quiz not found.")
		return domain.Quiz{}, false
	}
	quiz, err := s.Quizzes.GetQuizWithQuestions(c.Request.Context(), id)
	if errors.Is(err, domain.ErrQuizNotFound) {
		s.renderStatus(c, http.StatusNotFound, "Quiz not found.")
		return domain.Quiz{}, false
	}
	if err != nil {
		_ = c.Error(err)
		s.renderStatus(c, http.StatusInternalServerError, "Could not load the quiz.")
		return domain.Quiz{}, false
	}
	return quiz, true
}

func participantName(c *gin.Context, quizID int64) string {
	name, err := c.Cookie(session.ParticipantNameKey(quizID))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

func (s *Server) takeQuiz(c *gin.Context) {
	quiz, ok := s.loadQuiz(c)
	if !ok {
		return
	}
	name := participantName(c, quiz.ID)
	page := newPage(currentSession(c), AreaTake, quiz.Title)
	page.Data = takeView{
		Quiz:            quiz,
		NameStep:        name == "" || c.Query("rename") == "1",
		ParticipantName: name,
		Submitted:       map[int64]string{},
		Results:         map[int64]domain.QuestionResult{},
	}
	s.render(c, http.StatusOK, page)
}

func (s *Server) setParticipantName(c *gin.Context) {
	quiz, ok := s.loadQuiz(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(c.PostForm("participant_name"))
	if name == "" {
		page := newPage(currentSession(c), AreaTake, quiz.Title)
		page.Errors = map[string]string{"participant_name": "Enter your name to start."}
		page.Data = takeView{Quiz: quiz, NameStep: true}
		s.render(c, http.StatusUnprocessableEntity, page)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.ParticipantNameKey(quiz.ID), name, nameCookieMaxAge, "/", "", s.CookieSecure, false)
	c.Redirect(http.StatusSeeOther, "/quizzes/"+strconv.FormatInt(quiz.ID, 10))
}

func (s *Server) submitAnswers(c *gin.Context) {
	quiz, ok := s.loadQuiz(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	name := participantName(c, quiz.ID)
	if name == "" {
		page := newPage(sess, AreaTake, quiz.Title)
		page.Errors = map[string]string{"participant_name": "Enter your name to start."}
		page.Status = "Enter your name before answering."
		page.Data = takeView{Quiz: quiz, NameStep: true}
		s.render(c, http.StatusUnprocessableEntity, page)
		return
	}

	submitted := make(map[int64]string, len(quiz.Questions))
	for _, q := range quiz.Questions {
		submitted[q.ID] = c.PostForm("answer_" + strconv.FormatInt(q.ID, 10))
	}

	view := takeView{
		Quiz:            quiz,
		ParticipantName: name,
		Submitted:       submitted,
		Results:         map[int64]domain.QuestionResult{},
	}
	page := newPage(sess, AreaTake, quiz.Title)

	result, err := s.Quizzes.SubmitAnswers(c.Request.Context(), sess, quiz.ID, submitted, name)
	if err != nil {
		page.Data = view
		if verr, ok := domain.IsValidation(err); ok {
			page.Errors = verr.Fields
			page.Status = "Answer at least one question before submitting."
			s.render(c, http.StatusUnprocessableEntity, page)
			return
		}
		if errors.Is(err, domain.ErrNotAuthenticated) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		_ = c.Error(err)
		page.Status = "Could not submit your answers. Try again."
		s.render(c, http.StatusInternalServerError, page)
		return
	}

	for _, r := range result.Results {
		view.Results[r.QuestionID] = r
	}
	view.Feedback = true
	view.Correct = result.Correct
	view.Graded = result.Graded
	view.Accuracy = result.Accuracy()
	page.Data = view
	page.Status = "Answers submitted."
	s.render(c, http.StatusOK, page)
}
