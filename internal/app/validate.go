package app

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/movies"

	"github.com/go-playground/validator/v10"
)

var questionField = regexp.MustCompile(`Questions\[(\d+)\]\.(\w+)`)

// DraftValidator checks quiz drafts before anything is written.
type DraftValidator struct {
	validate *validator.Validate
}

func NewDraftValidator() *DraftValidator {
	return &DraftValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// FieldKey names the form field of question index i (0-based) with suffix, e.g. q1_text.
func FieldKey(i int, suffix string) string {
	return "q" + strconv.Itoa(i+1) + "_" + suffix
}

// Validate returns a *domain.ValidationError describing every problem, or nil.
func (v *DraftValidator) Validate(draft domain.QuizDraft) error {
	verr := &domain.ValidationError{}

	draft.Title = strings.TrimSpace(draft.Title)
	if err := v.validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate draft: %w", err)
		}
		for _, fe := range fieldErrs {
			key, msg := describe(fe)
			verr.Add(key, msg)
		}
	}

	for i, q := range draft.Questions {
		switch q.Type {
		case domain.QuestionMultipleChoice:
			filled, marked := 0, 0
			for _, c := range q.Choices {
				if strings.TrimSpace(c.Text) == "" {
					continue
				}
				filled++
				if c.IsCorrect {
					marked++
				}
			}
			if filled < 2 {
				verr.Add(FieldKey(i, "choices"), "Add at least two answer options.")
			}
			if marked != 1 {
				verr.Add(FieldKey(i, "correct"), "Mark exactly one option as correct.")
			}
		case domain.QuestionText:
			answer := strings.TrimSpace(q.CorrectAnswer)
			if answer == "" {
				verr.Add(FieldKey(i, "answer"), "Enter the correct answer.")
			} else if q.Subtype == domain.SubtypeRating {
				if _, err := movies.NormalizeRating(answer); err != nil {
					verr.Add(FieldKey(i, "answer"), "A rating answer must be a number between 1 and 10.")
				}
			}
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func describe(fe validator.FieldError) (string, string) {
	if m := questionField.FindStringSubmatch(fe.Namespace()); m != nil {
		i, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "Text":
			return FieldKey(i, "text"), "Enter the question text."
		case "Type":
			return FieldKey(i, "type"), "Choose a question type."
		}
		return FieldKey(i, strings.ToLower(m[2])), "Invalid value."
	}
	switch fe.Field() {
	case "Title":
		return "title", "Enter a quiz title."
	case "Questions":
		return "questions", "Add at least one question."
	case "ThumbnailURL":
		return "thumbnail_url", "Enter a valid image URL."
	}
	return strings.ToLower(fe.Field()), "Invalid value."
}
