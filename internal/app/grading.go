package app

import (
	"strconv"
	"strings"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/movies"
)

// gradeAnswer decides correctness of one answer.
//
// Text questions are graded against their key: numerically within the key's
// tolerance when one is stored (rating questions), otherwise by trimmed
// case-insensitive equality. No key means ungraded (nil). Multiple-choice answers
// carry the chosen choice id.
func gradeAnswer(q domain.Question, key *domain.TextAnswerKey, answer string) *bool {
	switch q.Type {
	case domain.QuestionMultipleChoice:
		_, ok := correctChoice(q, answer)
		return &ok
	case domain.QuestionText:
		if key == nil || strings.TrimSpace(key.CorrectAnswer) == "" {
			return nil
		}
		var ok bool
		if key.Tolerance != nil {
			ok = movies.CheckAnswer(answer, key.CorrectAnswer, *key.Tolerance)
		} else {
			ok = strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(key.CorrectAnswer))
		}
		return &ok
	default:
		return nil
	}
}

// correctChoice reports whether answer names a correct choice of q.
// The returned choice is the one selected, when it exists.
func correctChoice(q domain.Question, answer string) (domain.Choice, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
	if err != nil {
		return domain.Choice{}, false
	}
	for _, c := range q.Choices {
		if c.ID == id {
			return c, c.IsCorrect
		}
	}
	return domain.Choice{}, false
}

// storedAnswerText is what lands in answers.answer_text: the choice text for
// multiple choice, the typed text otherwise.
func storedAnswerText(q domain.Question, answer string) string {
	if q.Type != domain.QuestionMultipleChoice {
		return answer
	}
	id, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
	if err != nil {
		return answer
	}
	for _, c := range q.Choices {
		if c.ID == id {
			return c.Text
		}
	}
	return answer
}
