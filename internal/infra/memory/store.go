package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
)

// Store is an in-memory implementation of app.Store. All tables live behind one
// mutex, so counter and leaderboard updates are atomic.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	profiles  map[string]domain.Profile
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	choices   map[int64]domain.Choice
	keys      map[int64]domain.TextAnswerKey
	answers   []domain.Answer
	points    map[string]domain.UserPoints

	nextQuiz, nextQuestion, nextChoice, nextAnswer int64
}

func NewStore() *Store {
	return &Store{
		clock:     time.Now,
		profiles:  make(map[string]domain.Profile),
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		choices:   make(map[int64]domain.Choice),
		keys:      make(map[int64]domain.TextAnswerKey),
		points:    make(map[string]domain.UserPoints),
	}
}

var _ app.Store = (*Store)(nil)

func (s *Store) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNoRows
	}
	return p, nil
}

// InsertProfile keeps an existing row for the same id untouched.
func (s *Store) InsertProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return nil
	}
	if profile.Role == "" {
		profile.Role = domain.RoleUser
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *Store) SetRoleByEmail(_ context.Context, email string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for id, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			p.Role = role
			s.profiles[id] = p
			found = true
		}
	}
	if !found {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (s *Store) ListQuizzes(_ context.Context, order domain.QuizOrder) ([]domain.Quiz, error) {
	s.mu.RLock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if order == domain.OrderTop && out[i].AnswersCount != out[j].AnswersCount {
			return out[i].AnswersCount > out[j].AnswersCount
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrNoRows
	}
	return q, nil
}

func (s *Store) InsertQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuiz++
	quiz.ID = s.nextQuiz
	quiz.AnswersCount = 0
	quiz.Questions = nil
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = s.clock()
	}
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *Store) IncrementAnswersCount(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrNoRows
	}
	q.AnswersCount++
	s.quizzes[quizID] = q
	return nil
}

func (s *Store) ListQuestions(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	out := []domain.Question{}
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, domain.ErrNoRows
	}
	s.nextQuestion++
	question.ID = s.nextQuestion
	question.Choices = nil
	if question.CreatedAt.IsZero() {
		question.CreatedAt = s.clock()
	}
	s.questions[question.ID] = question
	return question, nil
}

func (s *Store) ListChoices(_ context.Context, questionIDs []int64) ([]domain.Choice, error) {
	want := idSet(questionIDs)
	s.mu.RLock()
	out := []domain.Choice{}
	for _, c := range s.choices {
		if _, ok := want[c.QuestionID]; ok {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertChoices(_ context.Context, choices []domain.Choice) ([]domain.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Choice, 0, len(choices))
	for _, c := range choices {
		if _, ok := s.questions[c.QuestionID]; !ok {
			return nil, domain.ErrNoRows
		}
	}
	for _, c := range choices {
		s.nextChoice++
		c.ID = s.nextChoice
		s.choices[c.ID] = c
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) ListTextAnswerKeys(_ context.Context, questionIDs []int64) ([]domain.TextAnswerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.TextAnswerKey{}
	for _, id := range questionIDs {
		if k, ok := s.keys[id]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) InsertTextAnswerKey(_ context.Context, key domain.TextAnswerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[key.QuestionID]; !ok {
		return domain.ErrNoRows
	}
	s.keys[key.QuestionID] = key
	return nil
}

func (s *Store) InsertAnswers(_ context.Context, answers []domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range answers {
		s.nextAnswer++
		a.ID = s.nextAnswer
		if a.SubmittedAt.IsZero() {
			a.SubmittedAt = s.clock()
		}
		s.answers = append(s.answers, a)
	}
	return nil
}

func (s *Store) ListAnswers(_ context.Context, filter app.AnswerFilter) ([]domain.AnswerView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AnswerView{}
	for _, a := range s.answers {
		view := domain.AnswerView{Answer: a, QuestionText: domain.UnknownQuestion, QuizTitle: domain.UnknownQuiz}
		if q, ok := s.questions[a.QuestionID]; ok {
			view.QuestionText = q.Text
			view.QuizID = q.QuizID
			if quiz, ok := s.quizzes[q.QuizID]; ok {
				view.QuizTitle = quiz.Title
				view.QuizCreatedBy = quiz.CreatedBy
			}
		}

		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.VisibleTo != "" && a.UserID != filter.VisibleTo && view.QuizCreatedBy != filter.VisibleTo {
			continue
		}
		if filter.QuizID != 0 && view.QuizID != filter.QuizID {
			continue
		}
		out = append(out, view)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *Store) ListUserPoints(_ context.Context, limit int) ([]domain.UserPoints, error) {
	s.mu.RLock()
	out := make([]domain.UserPoints, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserEmail < out[j].UserEmail
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecordUserPoints(_ context.Context, email string, points int, accuracy float64) (domain.UserPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.points[email]
	if !ok {
		row = domain.UserPoints{UserEmail: email}
	}
	row.Accuracy = (row.Accuracy*float64(row.QuizzesPlayed) + accuracy) / float64(row.QuizzesPlayed+1)
	row.TotalPoints += points
	row.QuizzesPlayed++
	row.UpdatedAt = s.clock()
	s.points[email] = row
	return row, nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
