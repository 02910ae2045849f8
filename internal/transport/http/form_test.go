package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"quiz-portal/internal/domain"

	"github.com/gin-gonic/gin"
)

func formContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/quizzes", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func TestParseDraft(t *testing.T) {
	c := formContext(url.Values{
		"title":                          {"Movies"},
		"question_count":                 {"3"},
		"q1_text":                        {"Rating of Up?"},
		"q1_type":                        {"text"},
		"q1_subtype":                     {"rating"},
		"q1_answer":                      {"8.3"},
		"q1_choice1":                     {"ignored for text questions"},
		"q2_text":                        {"Best picture 1994?"},
		"q2_type":                        {"multiple_choice"},
		"q2_choice1":                     {"Forrest Gump"},
		"q2_choice2":                     {"Pulp Fiction"},
		"q2_correct":                     {"1"},
		"q2_answer":                      {"ignored for choice questions"},
		"q2_image_url":                   {" https://images.example/oscar "},
		"q2_image_attribution":           {"<script>alert(1)</script>"},
		"q2_image_photographer":          {" Ada <b> "},
		"q2_image_photographer_username": {"ada"},
		"q3_text":                        {"Director of Jaws?"},
		"q3_type":                        {"text"},
		"q3_subtype":                     {"bogus"},
		"q3_answer":                      {"Spielberg"},
	})

	draft, count := parseDraft(c)
	if count != 3 || len(draft.Questions) != 3 {
		t.Fatalf("expected 3 questions, got count=%d len=%d", count, len(draft.Questions))
	}

	q1 := draft.Questions[0]
	if q1.Type != domain.QuestionText || q1.Subtype != domain.SubtypeRating || q1.CorrectAnswer != "8.3" || len(q1.Choices) != 0 {
		t.Fatalf("unexpected text question %+v", q1)
	}

	q2 := draft.Questions[1]
	if q2.Type != domain.QuestionMultipleChoice || q2.CorrectAnswer != "" {
		t.Fatalf("unexpected choice question %+v", q2)
	}
	if len(q2.Choices) != choiceSlots || !q2.Choices[0].IsCorrect || q2.Choices[1].IsCorrect {
		t.Fatalf("unexpected choices %+v", q2.Choices)
	}
	if q2.ImageURL != "https://images.example/oscar" || q2.ImagePhotographer != "Ada <b>" ||
		q2.ImagePhotographerUsername != "ada" || q2.ImageAttribution != "" {
		t.Fatalf("unexpected image fields %+v", q2)
	}

	if draft.Questions[2].Subtype != domain.SubtypeNone {
		t.Fatalf("unknown subtype must be dropped, got %q", draft.Questions[2].Subtype)
	}
}

func TestAttributeBuildsEscapedCredit(t *testing.T) {
	s := NewServer(Deps{})
	draft := domain.QuizDraft{Questions: []domain.QuestionDraft{
		{
			ImageURL:                  "https://images.example/oscar",
			ImagePhotographer:         "Ada <b>",
			ImagePhotographerUsername: "ada",
			ImageAttribution:          "<script>alert(1)</script>",
		},
		{
			ImageURL:         "https://images.example/jaws",
			ImageAttribution: "<script>alert(2)</script>",
		},
	}}

	s.attribute(&draft)

	credit := draft.Questions[0].ImageAttribution
	if !strings.Contains(credit, "Ada &lt;b&gt;") || !strings.Contains(credit, "https://unsplash.com/@ada?utm_source=quiz_portal") {
		t.Fatalf("unexpected credit %q", credit)
	}
	if strings.Contains(credit, "<script>") || strings.Contains(credit, "<b>") {
		t.Fatalf("credit must be escaped, got %q", credit)
	}
	if got := draft.Questions[1].ImageAttribution; got != "" {
		t.Fatalf("expected no credit without a photographer, got %q", got)
	}
}

func TestParseDraftClampsQuestionCount(t *testing.T) {
	cases := map[string]int{"": 1, "0": 1, "-4": 1, "abc": 1, "2": 2, "500": maxQuestions}
	for raw, want := range cases {
		_, count := parseDraft(formContext(url.Values{"question_count": {raw}}))
		if count != want {
			t.Fatalf("question_count %q: expected %d, got %d", raw, want, count)
		}
	}
}

func TestNewCreateViewPadsRows(t *testing.T) {
	draft := domain.QuizDraft{Questions: []domain.QuestionDraft{{
		Text: "Pick",
		Type: domain.QuestionMultipleChoice,
		Choices: []domain.ChoiceDraft{
			{Text: "A"},
			{Text: "B", IsCorrect: true},
		},
	}}}

	view := newCreateView(draft, 2)
	if view.Count != 2 || len(view.Questions) != 2 {
		t.Fatalf("expected 2 rows, got %+v", view)
	}
	first := view.Questions[0]
	if len(first.Choices) != choiceSlots || first.Choices[1].Text != "B" || !first.Choices[1].Correct || first.Choices[3].Slot != 4 {
		t.Fatalf("unexpected choice slots %+v", first.Choices)
	}
	if second := view.Questions[1]; second.Number() != 2 || second.Draft.Type != domain.QuestionText {
		t.Fatalf("expected a blank text row, got %+v", second)
	}
}
