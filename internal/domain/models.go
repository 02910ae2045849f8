package domain

import (
	"strings"
	"time"
)

// Role is the authorization role stored on a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps an arbitrary stored value to a known role, defaulting to user.
func ParseRole(raw string) Role {
	if Role(strings.ToLower(strings.TrimSpace(raw))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User is an identity owned by the authentication provider.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// Confirmed reports whether the user followed the emailed confirmation link.
func (u User) Confirmed() bool {
	return u.ConfirmedAt != nil && !u.ConfirmedAt.IsZero()
}

// Profile is the application-side record for a user. Exactly one per user id.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Quiz is a collection of questions authored by an admin.
type Quiz struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CreatedBy    string     `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	AnswersCount int        `json:"answersCount"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Questions    []Question `json:"questions,omitempty"`
}

// QuizOrder selects the sort order of the quiz list.
type QuizOrder string

const (
	OrderNewest QuizOrder = "newest"
	OrderTop    QuizOrder = "top"
)

// ParseQuizOrder falls back to newest for unknown values.
func ParseQuizOrder(raw string) QuizOrder {
	if QuizOrder(raw) == OrderTop {
		return OrderTop
	}
	return OrderNewest
}

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
)

// QuestionSubtype tags text questions that are graded numerically.
type QuestionSubtype string

const (
	SubtypeNone   QuestionSubtype = ""
	SubtypeRating QuestionSubtype = "rating"
)

// Question belongs to exactly one quiz.
type Question struct {
	ID               int64           `json:"id"`
	QuizID           int64           `json:"quizId"`
	Text             string          `json:"text"`
	Type             QuestionType    `json:"type"`
	Subtype          QuestionSubtype `json:"subtype,omitempty"`
	ImageURL         string          `json:"imageUrl,omitempty"`
	ImageAttribution string          `json:"imageAttribution,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	Choices          []Choice        `json:"choices"`
}

// Choice is one option of a multiple-choice question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
}

// TextAnswerKey is the stored correct answer of a text question.
// A non-nil Tolerance switches grading to numeric comparison.
type TextAnswerKey struct {
	QuestionID    int64    `json:"questionId"`
	CorrectAnswer string   `json:"correctAnswer"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
}

// Answer is one submitted answer. IsCorrect is nil when no key exists.
type Answer struct {
	ID              int64     `json:"id"`
	QuestionID      int64     `json:"questionId"`
	UserID          string    `json:"userId"`
	AnswerText      string    `json:"answerText"`
	IsCorrect       *bool     `json:"isCorrect"`
	ParticipantName string    `json:"participantName,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

const (
	UnknownQuiz     = "Unknown quiz"
	UnknownQuestion = "Unknown question"
)

// AnswerView is an answer joined with its question and quiz.
type AnswerView struct {
	Answer
	QuestionText  string `json:"questionText"`
	QuizID        int64  `json:"quizId"`
	QuizTitle     string `json:"quizTitle"`
	QuizCreatedBy string `json:"quizCreatedBy"`
}

// DisplayName returns the participant name, or a short user id when none was given.
func (a AnswerView) DisplayName() string {
	if strings.TrimSpace(a.ParticipantName) != "" {
		return a.ParticipantName
	}
	if len(a.UserID) > 8 {
		return a.UserID[:8]
	}
	return a.UserID
}

// UserPoints is a leaderboard row.
type UserPoints struct {
	UserEmail     string    `json:"userEmail"`
	TotalPoints   int       `json:"totalPoints"`
	QuizzesPlayed int       `json:"quizzesPlayed"`
	Accuracy      float64   `json:"accuracy"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// QuizDraft is the validated input for quiz creation.
type QuizDraft struct {
	Title        string          `json:"title" validate:"required"`
	Description  string          `json:"description"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty" validate:"omitempty,url"`
	Questions    []QuestionDraft `json:"questions" validate:"required,min=1,dive"`
}

// QuestionDraft is one question of a QuizDraft.
type QuestionDraft struct {
	Text                      string          `json:"text" validate:"required"`
	Type                      QuestionType    `json:"type" validate:"required,oneof=text multiple_choice"`
	Subtype                   QuestionSubtype `json:"subtype,omitempty"`
	CorrectAnswer             string          `json:"correctAnswer,omitempty"`
	Choices                   []ChoiceDraft   `json:"choices,omitempty"`
	ImageURL                  string          `json:"imageUrl,omitempty"`
	ImagePhotographer         string          `json:"imagePhotographer,omitempty"`
	ImagePhotographerUsername string          `json:"imagePhotographerUsername,omitempty"`
	ImageAttribution          string          `json:"imageAttribution,omitempty"`
}

// ChoiceDraft is one option of a multiple-choice QuestionDraft.
type ChoiceDraft struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionResult is the graded outcome of one submitted answer.
type QuestionResult struct {
	QuestionID int64  `json:"questionId"`
	AnswerText string `json:"answerText"`
	IsCorrect  *bool  `json:"isCorrect"`
}

// SubmissionResult summarizes a submitted answer batch.
type SubmissionResult struct {
	QuizID  int64            `json:"quizId"`
	Results []QuestionResult `json:"results"`
	Correct int              `json:"correct"`
	Graded  int              `json:"graded"`
}

// Accuracy returns the percentage of graded answers that were correct.
func (r SubmissionResult) Accuracy() float64 {
	if r.Graded == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Graded) * 100
}

// ResultFor finds the graded outcome for a question.
func (r SubmissionResult) ResultFor(questionID int64) (QuestionResult, bool) {
	for _, res := range r.Results {
		if res.QuestionID == questionID {
			return res, true
		}
	}
	return QuestionResult{}, false
}
