package http

import (
	"html/template"
	"strconv"
	"strings"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/images"

	"github.com/gin-gonic/gin"
)

const (
	maxQuestions = 50
	choiceSlots  = 4
)

// parseDraft reads the quiz creation form. It returns the draft and the number
// of question rows the form carried. Image attribution is never read from the
// form; see attribute.
func parseDraft(c *gin.Context) (domain.QuizDraft, int) {
	count, _ := strconv.Atoi(c.PostForm("question_count"))
	count = clamp(count, 1, maxQuestions)

	draft := domain.QuizDraft{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		ThumbnailURL: strings.TrimSpace(c.PostForm("thumbnail_url")),
	}
	for i := 0; i < count; i++ {
		field := func(suffix string) string { return c.PostForm(app.FieldKey(i, suffix)) }

		qd := domain.QuestionDraft{
			Text:                      field("text"),
			Type:                      domain.QuestionType(field("type")),
			ImageURL:                  strings.TrimSpace(field("image_url")),
			ImagePhotographer:         strings.TrimSpace(field("image_photographer")),
			ImagePhotographerUsername: strings.TrimSpace(field("image_photographer_username")),
		}
		switch qd.Type {
		case domain.QuestionMultipleChoice:
			correct := field("correct")
			for j := 1; j <= choiceSlots; j++ {
				slot := strconv.Itoa(j)
				qd.Choices = append(qd.Choices, domain.ChoiceDraft{
					Text:      field("choice" + slot),
					IsCorrect: correct == slot,
				})
			}
		case domain.QuestionText:
			qd.CorrectAnswer = field("answer")
			if domain.QuestionSubtype(field("subtype")) == domain.SubtypeRating {
				qd.Subtype = domain.SubtypeRating
			}
		}
		draft.Questions = append(draft.Questions, qd)
	}
	return draft, count
}

type choiceForm struct {
	Slot    int
	Text    string
	Correct bool
}

type questionForm struct {
	Index   int
	Draft   domain.QuestionDraft
	Choices []choiceForm
}

func (q questionForm) Number() int { return q.Index + 1 }

type createView struct {
	Draft     domain.QuizDraft
	Questions []questionForm
	Count     int
}

// newCreateView lays out count question rows, each with a fixed number of
// choice slots, prefilled from draft.
func newCreateView(draft domain.QuizDraft, count int) createView {
	count = clamp(count, 1, maxQuestions)
	view := createView{Draft: draft, Count: count}
	for i := 0; i < count; i++ {
		qf := questionForm{Index: i, Draft: domain.QuestionDraft{Type: domain.QuestionText}}
		if i < len(draft.Questions) {
			qf.Draft = draft.Questions[i]
		}
		for j := 0; j < choiceSlots; j++ {
			cf := choiceForm{Slot: j + 1}
			if j < len(qf.Draft.Choices) {
				cf.Text = qf.Draft.Choices[j].Text
				cf.Correct = qf.Draft.Choices[j].IsCorrect
			}
			qf.Choices = append(qf.Choices, cf)
		}
		view.Questions = append(view.Questions, qf)
	}
	return view
}

// attribute builds the image credit of every question from the photographer
// fields. Questions without an image or photographer get none.
func (s *Server) attribute(draft *domain.QuizDraft) {
	for i := range draft.Questions {
		q := &draft.Questions[i]
		q.ImageAttribution = ""
		if q.ImageURL == "" || q.ImagePhotographer == "" || q.ImagePhotographerUsername == "" {
			continue
		}
		img := images.Image{
			URL:                  q.ImageURL,
			Photographer:         q.ImagePhotographer,
			PhotographerUsername: q.ImagePhotographerUsername,
			PhotographerProfile:  images.ProfileURL(q.ImagePhotographerUsername),
		}
		var markup template.HTML
		if s.Images != nil {
			markup = s.Images.AttributionMarkup(img)
		} else {
			markup = images.Attribution(img, images.DefaultUTMSource)
		}
		q.ImageAttribution = string(markup)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
