package http

import (
	"errors"
	"net/http"
	"strconv"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/images"
	"quiz-portal/internal/movies"

	"github.com/gin-gonic/gin"
)

const maxImageCount = 30

type generateRequest struct {
	Title string              `json:"title" binding:"required"`
	Type  domain.QuestionType `json:"type"`
}

type imageResult struct {
	images.Image
	Attribution string `json:"attribution"`
}

func (s *Server) searchMovies(c *gin.Context) {
	titles := s.Movies.SearchTitles(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"results": titles})
}

func (s *Server) generateQuestion(c *gin.Context) {
	if !currentSession(c).IsAdmin() {
		jsonError(c, http.StatusForbidden, "Only admins can generate questions")
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		q   movies.GeneratedQuestion
		err error
	)
	switch req.Type {
	case domain.QuestionMultipleChoice:
		q, err = s.Questions.BuildMultipleChoice(c.Request.Context(), req.Title)
	case domain.QuestionText, "":
		q, err = s.Questions.BuildTextAnswer(c.Request.Context(), req.Title)
	default:
		jsonError(c, http.StatusBadRequest, "Unknown question type")
		return
	}

	switch {
	case errors.Is(err, domain.ErrMovieNotFound):
		jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDistractorsExhausted):
		jsonError(c, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		_ = c.Error(err)
		jsonError(c, http.StatusBadGateway, "Movie database unavailable")
	default:
		c.JSON(http.StatusOK, q)
	}
}

func (s *Server) searchImages(c *gin.Context) {
	count, err := strconv.Atoi(c.Query("count"))
	if err != nil || count <= 0 {
		count = images.DefaultCount
	}
	count = clamp(count, 1, maxImageCount)

	found := s.Images.Search(c.Request.Context(), c.Query("q"), count)
	out := make([]imageResult, 0, len(found))
	for _, img := range found {
		out = append(out, imageResult{Image: img, Attribution: string(s.Images.AttributionMarkup(img))})
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
