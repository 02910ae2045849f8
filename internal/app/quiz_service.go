package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/events"
	"quiz-portal/internal/logging"
	"quiz-portal/internal/metrics"
	"quiz-portal/internal/movies"
	"quiz-portal/internal/session"

	"github.com/sirupsen/logrus"
)

// QuizService contains the quiz use cases: listing, authoring, taking and reviewing.
type QuizService struct {
	store     Store
	quizzes   QuizCache
	rankings  *Rankings
	validator *DraftValidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Entry
	now       func() time.Time
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithRankings enables leaderboard updates after graded submissions.
func WithRankings(r *Rankings) Option { return func(s *QuizService) { s.rankings = r } }

// WithPublisher sends quiz.created and answers.submitted events to p.
func WithPublisher(p events.Publisher) Option { return func(s *QuizService) { s.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *QuizService) { s.metrics = m } }

func WithLogger(log *logrus.Entry) Option {
	return func(s *QuizService) { s.log = log.WithField("component", "quiz_service") }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(s *QuizService) { s.now = now } }

func NewQuizService(store Store, quizzes QuizCache, opts ...Option) *QuizService {
	s := &QuizService{
		store:     store,
		quizzes:   quizzes,
		validator: NewDraftValidator(),
		publisher: events.NopPublisher{},
		log:       logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListQuizzes returns all quizzes in the requested order.
func (s *QuizService) ListQuizzes(ctx context.Context, order domain.QuizOrder) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// GetQuizWithQuestions returns the quiz with its questions and their choices.
func (s *QuizService) GetQuizWithQuestions(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// CreateQuiz stores a quiz with its questions. Only admins may create quizzes;
// anyone else gets ErrForbidden and nothing is written.
func (s *QuizService) CreateQuiz(ctx context.Context, sess session.Reader, draft domain.QuizDraft) (*domain.Quiz, error) {
	if sess == nil || !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	draft = normalizeDraft(draft)
	if err := s.validator.Validate(draft); err != nil {
		return nil, err
	}

	now := s.now()
	quiz, err := s.store.InsertQuiz(ctx, domain.Quiz{
		Title:        draft.Title,
		Description:  draft.Description,
		CreatedBy:    sess.User().ID,
		CreatedAt:    now,
		ThumbnailURL: draft.ThumbnailURL,
	})
	if err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}

	quiz.Questions = make([]domain.Question, 0, len(draft.Questions))
	for i, qd := range draft.Questions {
		q, err := s.createQuestion(ctx, quiz.ID, qd, now)
		if err != nil {
			// A failed question is skipped; the rest of the quiz is kept.
			s.log.WithError(err).WithFields(logrus.Fields{"quiz_id": quiz.ID, "question": i + 1}).Warn("question insert failed")
			continue
		}
		quiz.Questions = append(quiz.Questions, q)
	}

	s.metrics.ObserveQuizCreated()
	s.emit(ctx, events.TypeQuizCreated, map[string]any{
		"quizId":    quiz.ID,
		"title":     quiz.Title,
		"createdBy": quiz.CreatedBy,
		"questions": len(quiz.Questions),
	})
	return &quiz, nil
}

func (s *QuizService) createQuestion(ctx context.Context, quizID int64, qd domain.QuestionDraft, now time.Time) (domain.Question, error) {
	q, err := s.store.InsertQuestion(ctx, domain.Question{
		QuizID:           quizID,
		Text:             qd.Text,
		Type:             qd.Type,
		Subtype:          qd.Subtype,
		ImageURL:         qd.ImageURL,
		ImageAttribution: qd.ImageAttribution,
		CreatedAt:        now,
	})
	if err != nil {
		return domain.Question{}, err
	}

	switch qd.Type {
	case domain.QuestionMultipleChoice:
		choices := make([]domain.Choice, 0, len(qd.Choices))
		for _, c := range qd.Choices {
			if c.Text == "" {
				continue
			}
			choices = append(choices, domain.Choice{QuestionID: q.ID, Text: c.Text, IsCorrect: c.IsCorrect})
		}
		stored, err := s.store.InsertChoices(ctx, choices)
		if err != nil {
			return domain.Question{}, fmt.Errorf("insert choices: %w", err)
		}
		q.Choices = stored
	case domain.QuestionText:
		key := domain.TextAnswerKey{QuestionID: q.ID, CorrectAnswer: qd.CorrectAnswer}
		if qd.Subtype == domain.SubtypeRating {
			normalized, err := movies.NormalizeRating(qd.CorrectAnswer)
			if err != nil {
				return domain.Question{}, fmt.Errorf("rating answer key: %w", err)
			}
			tol := movies.DefaultTolerance
			key.CorrectAnswer = normalized
			key.Tolerance = &tol
		}
		if err := s.store.InsertTextAnswerKey(ctx, key); err != nil {
			return domain.Question{}, fmt.Errorf("insert answer key: %w", err)
		}
		q.Choices = []domain.Choice{}
	}
	return q, nil
}

func normalizeDraft(d domain.QuizDraft) domain.QuizDraft {
	out := domain.QuizDraft{
		Title:        strings.TrimSpace(d.Title),
		Description:  strings.TrimSpace(d.Description),
		ThumbnailURL: strings.TrimSpace(d.ThumbnailURL),
		Questions:    make([]domain.QuestionDraft, 0, len(d.Questions)),
	}
	for _, q := range d.Questions {
		nq := q
		nq.Text = strings.TrimSpace(q.Text)
		nq.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		nq.ImageURL = strings.TrimSpace(q.ImageURL)
		nq.Choices = make([]domain.ChoiceDraft, 0, len(q.Choices))
		for _, c := range q.Choices {
			nq.Choices = append(nq.Choices, domain.ChoiceDraft{Text: strings.TrimSpace(c.Text), IsCorrect: c.IsCorrect})
		}
		out.Questions = append(out.Questions, nq)
	}
	return out
}

// SubmitAnswers grades and stores one answer per question. answers maps question
// id to the typed text or, for multiple choice, the chosen choice id.
func (s *QuizService) SubmitAnswers(ctx context.Context, sess session.Reader, quizID int64, answers map[int64]string, participantName string) (domain.SubmissionResult, error) {
	user := sess.User()
	if user == nil {
		return domain.SubmissionResult{}, domain.ErrNotAuthenticated
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	ids := make([]int64, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids = append(ids, q.ID)
	}
	keys := map[int64]domain.TextAnswerKey{}
	if len(ids) > 0 {
		rows, err := s.store.ListTextAnswerKeys(ctx, ids)
		if err != nil {
			return domain.SubmissionResult{}, fmt.Errorf("load answer keys: %w", err)
		}
		for _, k := range rows {
			keys[k.QuestionID] = k
		}
	}

	now := s.now()
	name := strings.TrimSpace(participantName)
	result := domain.SubmissionResult{QuizID: quizID}
	rows := make([]domain.Answer, 0, len(answers))
	for _, q := range quiz.Questions {
		raw := strings.TrimSpace(answers[q.ID])
		if raw == "" {
			continue
		}

		var key *domain.TextAnswerKey
		if k, ok := keys[q.ID]; ok {
			key = &k
		}
		isCorrect := gradeAnswer(q, key, raw)
		text := storedAnswerText(q, raw)

		rows = append(rows, domain.Answer{
			QuestionID:      q.ID,
			UserID:          user.ID,
			AnswerText:      text,
			IsCorrect:       isCorrect,
			ParticipantName: name,
			SubmittedAt:     now,
		})
		result.Results = append(result.Results, domain.QuestionResult{QuestionID: q.ID, AnswerText: text, IsCorrect: isCorrect})
		if isCorrect != nil {
			result.Graded++
			if *isCorrect {
				result.Correct++
			}
		}
	}

	if len(rows) == 0 {
		return domain.SubmissionResult{}, domain.NewValidationError("answers", "Answer at least one question.")
	}
	if err := s.store.InsertAnswers(ctx, rows); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("insert answers: %w", err)
	}
	for _, r := range rows {
		s.metrics.ObserveAnswer(r.IsCorrect)
	}

	log := s.log.WithFields(logrus.Fields{"quiz_id": quizID, "user_id": user.ID})
	if err := s.store.IncrementAnswersCount(ctx, quizID); err != nil {
		log.WithError(err).Warn("answers_count increment failed")
	}
	if s.rankings != nil && result.Graded > 0 {
		if _, err := s.rankings.Record(ctx, sess, result.Correct, result.Accuracy()); err != nil {
			log.WithError(err).Warn("ranking update failed")
		}
	}

	s.emit(ctx, events.TypeAnswersSubmitted, map[string]any{
		"quizId":  quizID,
		"userId":  user.ID,
		"answers": len(rows),
		"correct": result.Correct,
		"graded":  result.Graded,
	})
	return result, nil
}

// FetchAllAnswers returns the answers the caller may see: everything for admins,
// otherwise their own answers and answers given to quizzes they created.
func (s *QuizService) FetchAllAnswers(ctx context.Context, sess session.Reader) ([]domain.AnswerView, error) {
	user := sess.User()
	if user == nil {
		return []domain.AnswerView{}, nil
	}
	filter := AnswerFilter{VisibleTo: user.ID}
	if sess.IsAdmin() {
		filter = AnswerFilter{}
	}
	return s.listAnswers(ctx, filter)
}

// FetchMyAnswers returns the caller's own answers, newest first.
func (s *QuizService) FetchMyAnswers(ctx context.Context, sess session.Reader) ([]domain.AnswerView, error) {
	user := sess.User()
	if user == nil {
		return []domain.AnswerView{}, nil
	}
	return s.listAnswers(ctx, AnswerFilter{UserID: user.ID})
}

// FetchQuizAnswers returns every answer to one quiz. Non-admins get an empty list.
func (s *QuizService) FetchQuizAnswers(ctx context.Context, sess session.Reader, quizID int64) ([]domain.AnswerView, error) {
	if !sess.IsAdmin() {
		return []domain.AnswerView{}, nil
	}
	return s.listAnswers(ctx, AnswerFilter{QuizID: quizID})
}

func (s *QuizService) listAnswers(ctx context.Context, filter AnswerFilter) ([]domain.AnswerView, error) {
	views, err := s.store.ListAnswers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].SubmittedAt.After(views[j].SubmittedAt)
	})
	return views, nil
}

func (s *QuizService) emit(ctx context.Context, typ string, payload any) {
	evt := events.Event{Type: typ, Topic: typ, Payload: payload, At: s.now()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.WithError(err).WithField("event", typ).Warn("event publish failed")
	}
}

// AnswerGroup is the answers to one quiz, as shown on the results pages.
type AnswerGroup struct {
	QuizID    int64
	QuizTitle string
	Answers   []domain.AnswerView
}

// GroupByQuiz groups answers by quiz, keeping the order in which quizzes first appear.
func GroupByQuiz(answers []domain.AnswerView) []AnswerGroup {
	groups := []AnswerGroup{}
	index := map[string]int{}
	for _, a := range answers {
		title := a.QuizTitle
		if title == "" {
			title = domain.UnknownQuiz
		}
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, AnswerGroup{QuizID: a.QuizID, QuizTitle: title})
		}
		groups[i].Answers = append(groups[i].Answers, a)
	}
	return groups
}
