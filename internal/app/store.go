package app

import (
	"context"

	"quiz-portal/internal/domain"
)

// AnswerFilter narrows answer reads. The zero value matches every answer.
type AnswerFilter struct {
	// UserID keeps only answers submitted by this user.
	UserID string
	// VisibleTo keeps answers submitted by this user or given to quizzes this user created.
	VisibleTo string
	// QuizID keeps answers to one quiz.
	QuizID int64
}

// ProfileStore reads and writes the profiles table.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	InsertProfile(ctx context.Context, profile domain.Profile) error
	SetRoleByEmail(ctx context.Context, email string, role domain.Role) error
}

// PointsStore reads and writes the user_points table.
type PointsStore interface {
	ListUserPoints(ctx context.Context, limit int) ([]domain.UserPoints, error)
	// RecordUserPoints adds points and folds accuracy into the running average
	// for email, creating the row on first play.
	RecordUserPoints(ctx context.Context, email string, points int, accuracy float64) (domain.UserPoints, error)
}

// Store is the row store behind the application: profiles, quizzes, questions,
// question_choices, text_answers, answers and user_points.
// Single-row lookups return domain.ErrNoRows when nothing matched.
type Store interface {
	ProfileStore
	PointsStore

	ListQuizzes(ctx context.Context, order domain.QuizOrder) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	IncrementAnswersCount(ctx context.Context, quizID int64) error

	ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error)
	InsertQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	ListChoices(ctx context.Context, questionIDs []int64) ([]domain.Choice, error)
	InsertChoices(ctx context.Context, choices []domain.Choice) ([]domain.Choice, error)
	ListTextAnswerKeys(ctx context.Context, questionIDs []int64) ([]domain.TextAnswerKey, error)
	InsertTextAnswerKey(ctx context.Context, key domain.TextAnswerKey) error

	InsertAnswers(ctx context.Context, answers []domain.Answer) error
	ListAnswers(ctx context.Context, filter AnswerFilter) ([]domain.AnswerView, error)
}

// QuizCache returns a quiz with its questions and choices, possibly from cache.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}
