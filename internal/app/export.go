package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"quiz-portal/internal/domain"
)

var csvHeader = []string{"quiz", "question", "participant", "answer", "correct", "submitted_at"}

// ExportAnswersCSV writes answers as CSV with a header row. The correct column is
// empty for ungraded answers.
func ExportAnswersCSV(w io.Writer, answers []domain.AnswerView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range answers {
		quiz := a.QuizTitle
		if quiz == "" {
			quiz = domain.UnknownQuiz
		}
		question := a.QuestionText
		if question == "" {
			question = domain.UnknownQuestion
		}
		correct := ""
		if a.IsCorrect != nil {
			correct = strconv.FormatBool(*a.IsCorrect)
		}
		record := []string{quiz, question, a.DisplayName(), a.AnswerText, correct, a.SubmittedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
