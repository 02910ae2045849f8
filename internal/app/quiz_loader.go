package app

import (
	"context"
	"errors"
	"fmt"

	"quiz-portal/internal/domain"
)

// QuizLoader assembles a quiz with its questions and choices from the store:
// quiz, then its questions, then the choices for the question id set.
type QuizLoader struct {
	store Store
}

func NewQuizLoader(store Store) *QuizLoader {
	return &QuizLoader{store: store}
}

// LoadQuiz implements the cache loader contract.
func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := l.store.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := l.store.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}

	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	byQuestion := map[int64][]domain.Choice{}
	if len(ids) > 0 {
		choices, err := l.store.ListChoices(ctx, ids)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("load choices: %w", err)
		}
		for _, c := range choices {
			byQuestion[c.QuestionID] = append(byQuestion[c.QuestionID], c)
		}
	}

	for i := range questions {
		questions[i].Choices = byQuestion[questions[i].ID]
		if questions[i].Choices == nil {
			questions[i].Choices = []domain.Choice{}
		}
	}
	quiz.Questions = questions
	return quiz, nil
}

// DirectQuizCache serves every read straight from the loader.
type DirectQuizCache struct {
	loader *QuizLoader
}

func NewDirectQuizCache(loader *QuizLoader) *DirectQuizCache {
	return &DirectQuizCache{loader: loader}
}

func (c *DirectQuizCache) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return c.loader.LoadQuiz(ctx, quizID)
}
