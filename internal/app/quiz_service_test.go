package app_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/events"
	"quiz-portal/internal/infra/memory"
	"quiz-portal/internal/logging"
	"quiz-portal/internal/session"
)

type fixture struct {
	store    *memory.Store
	service  *app.QuizService
	rankings *app.Rankings
	hub      *events.Hub
	events   *recordingPublisher
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func newFixture() *fixture {
	store := memory.NewStore()
	hub := events.NewHub()
	rankings := app.NewRankings(store, hub, logging.Discard())
	pub := &recordingPublisher{}
	cache := memory.NewQuizCache(app.NewQuizLoader(store), time.Minute)
	service := app.NewQuizService(store, cache,
		app.WithRankings(rankings),
		app.WithPublisher(pub),
		app.WithLogger(logging.Discard()),
	)
	return &fixture{store: store, service: service, rankings: rankings, hub: hub, events: pub}
}

func signedIn(id, email string, role domain.Role) *session.Context {
	now := time.Now()
	sess := session.New("sid-" + id)
	sess.Set(domain.User{ID: id, Email: email, ConfirmedAt: &now}, "tok", "ref")
	sess.SetRole(role)
	return sess
}

func geoDraft() domain.QuizDraft {
	return domain.QuizDraft{
		Title: "Geo",
		Questions: []domain.QuestionDraft{
			{Text: "Capital of Norway?", Type: domain.QuestionText, CorrectAnswer: "Oslo"},
		},
	}
}

func TestCreateAndTakeMultipleChoiceQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	quiz, err := f.service.CreateQuiz(ctx, admin, domain.QuizDraft{
		Title: "Arithmetic",
		Questions: []domain.QuestionDraft{{
			Text: "What is 2 + 2?",
			Type: domain.QuestionMultipleChoice,
			Choices: []domain.ChoiceDraft{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
				{Text: "5"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	loaded, err := f.service.GetQuizWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(loaded.Questions) != 1 || len(loaded.Questions[0].Choices) != 3 {
		t.Fatalf("expected 1 question with 3 choices, got %+v", loaded.Questions)
	}
	question := loaded.Questions[0]
	var right, wrong int64
	for _, c := range question.Choices {
		if c.IsCorrect {
			right = c.ID
		} else {
			wrong = c.ID
		}
	}

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	res, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{question.ID: strconv.FormatInt(right, 10)}, "Ada")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r, _ := res.ResultFor(question.ID); r.IsCorrect == nil || !*r.IsCorrect || r.AnswerText != "4" {
		t.Fatalf("expected correct answer stored as choice text, got %+v", r)
	}

	res, _ = f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{question.ID: strconv.FormatInt(wrong, 10)}, "Ada")
	if r, _ := res.ResultFor(question.ID); r.IsCorrect == nil || *r.IsCorrect {
		t.Fatalf("expected wrong choice to be incorrect, got %+v", r)
	}

	res, _ = f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{question.ID: "9999"}, "Ada")
	if r, _ := res.ResultFor(question.ID); r.IsCorrect == nil || *r.IsCorrect {
		t.Fatalf("expected unknown choice to be incorrect, got %+v", r)
	}
}

func TestGeoScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	quiz, err := f.service.CreateQuiz(ctx, admin, geoDraft())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question := quiz.Questions[0]

	player := signedIn("player-123456789", "p@example.com", domain.RoleUser)
	res, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{question.ID: "  oslo "}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Correct != 1 || res.Graded != 1 {
		t.Fatalf("expected 1/1 correct, got %+v", res)
	}

	stored, _ := f.store.GetQuiz(ctx, quiz.ID)
	if stored.AnswersCount != 1 {
		t.Fatalf("expected answers_count 1, got %d", stored.AnswersCount)
	}

	mine, _ := f.service.FetchMyAnswers(ctx, player)
	if len(mine) != 1 || mine[0].QuizTitle != "Geo" || mine[0].IsCorrect == nil || !*mine[0].IsCorrect {
		t.Fatalf("unexpected own answers %+v", mine)
	}

	board, _ := f.rankings.Leaderboard(ctx, 10)
	if len(board) != 1 || board[0].UserEmail != "p@example.com" || board[0].TotalPoints != 1 || board[0].Accuracy != 100 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	var types []string
	for _, evt := range f.events.events {
		types = append(types, evt.Type)
	}
	if len(types) != 2 || types[0] != events.TypeQuizCreated || types[1] != events.TypeAnswersSubmitted {
		t.Fatalf("unexpected published events %v", types)
	}
}

func TestTextQuestionWithoutKeyIsUngraded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	quiz, _ := f.store.InsertQuiz(ctx, domain.Quiz{Title: "Opinions", CreatedBy: "admin"})
	q, _ := f.store.InsertQuestion(ctx, domain.Question{QuizID: quiz.ID, Text: "Favourite film?", Type: domain.QuestionText})

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	res, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{q.ID: "Heat"}, "Ada")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r, _ := res.ResultFor(q.ID); r.IsCorrect != nil {
		t.Fatalf("expected ungraded answer, got %v", *r.IsCorrect)
	}
	if board, _ := f.rankings.Leaderboard(ctx, 10); len(board) != 0 {
		t.Fatalf("expected no ranking update for ungraded submission, got %+v", board)
	}
}

func TestRatingToleranceOnlyForRatingQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	quiz, err := f.service.CreateQuiz(ctx, admin, domain.QuizDraft{
		Title: "Films",
		Questions: []domain.QuestionDraft{
			{Text: "IMDb rating of Heat?", Type: domain.QuestionText, Subtype: domain.SubtypeRating, CorrectAnswer: "8.0"},
			{Text: "Apollo mission number?", Type: domain.QuestionText, CorrectAnswer: "8.0"},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	rating, plain := quiz.Questions[0].ID, quiz.Questions[1].ID

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	tests := []struct {
		name     string
		question int64
		answer   string
		want     bool
	}{
		{"rating within tolerance", rating, "7,8", true},
		{"rating outside tolerance", rating, "7.7", false},
		{"rating non-numeric", rating, "eight", false},
		{"plain numeric key compares as text", plain, "8", false},
		{"plain numeric key exact", plain, "8.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{tt.question: tt.answer}, "")
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			r, ok := res.ResultFor(tt.question)
			if !ok || r.IsCorrect == nil || *r.IsCorrect != tt.want {
				t.Fatalf("answer %q: expected %v, got %+v", tt.answer, tt.want, r)
			}
		})
	}
}

func TestRatingKeyWithDecimalComma(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	quiz, err := f.service.CreateQuiz(ctx, admin, domain.QuizDraft{
		Title: "Films",
		Questions: []domain.QuestionDraft{
			{Text: "IMDb rating of Up?", Type: domain.QuestionText, Subtype: domain.SubtypeRating, CorrectAnswer: "7,5"},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	qid := quiz.Questions[0].ID

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	for answer, want := range map[string]bool{"7.5": true, "7,5": true, "7.4": true, "6.9": false} {
		res, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{qid: answer}, "Kari")
		if err != nil {
			t.Fatalf("submit %q: %v", answer, err)
		}
		r, ok := res.ResultFor(qid)
		if !ok || r.IsCorrect == nil || *r.IsCorrect != want {
			t.Fatalf("answer %q: expected %v, got %+v", answer, want, r)
		}
	}
}

func TestRatingKeyOutOfRangeIsRejected(t *testing.T) {
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	_, err := f.service.CreateQuiz(context.Background(), admin, domain.QuizDraft{
		Title: "Films",
		Questions: []domain.QuestionDraft{
			{Text: "IMDb rating of Up?", Type: domain.QuestionText, Subtype: domain.SubtypeRating, CorrectAnswer: "11"},
		},
	})
	verr, ok := domain.IsValidation(err)
	if !ok || verr.Fields["q1_answer"] == "" {
		t.Fatalf("expected q1_answer validation message, got %v", err)
	}
}

func TestCreateQuizRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	for _, sess := range []session.Reader{
		session.New("anonymous"),
		signedIn("p1", "p1@example.com", domain.RoleUser),
	} {
		quiz, err := f.service.CreateQuiz(ctx, sess, geoDraft())
		if !errors.Is(err, domain.ErrForbidden) || quiz != nil {
			t.Fatalf("expected forbidden with no quiz, got %v %v", quiz, err)
		}
	}

	quizzes, _ := f.service.ListQuizzes(ctx, domain.OrderNewest)
	if len(quizzes) != 0 {
		t.Fatalf("expected no quizzes written, got %d", len(quizzes))
	}
}

func TestCreateQuizValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)

	_, err := f.service.CreateQuiz(ctx, admin, domain.QuizDraft{
		Title: "  ",
		Questions: []domain.QuestionDraft{
			{Text: "Pick one", Type: domain.QuestionMultipleChoice, Choices: []domain.ChoiceDraft{{Text: "only", IsCorrect: true}}},
			{Text: "Type it", Type: domain.QuestionText},
			{Text: "", Type: domain.QuestionMultipleChoice, Choices: []domain.ChoiceDraft{{Text: "a"}, {Text: "b"}}},
		},
	})
	verr, ok := domain.IsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"title", "q1_choices", "q2_answer", "q3_text", "q3_correct"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected message for %s, got %v", field, verr.Fields)
		}
	}

	_, err = f.service.CreateQuiz(ctx, admin, domain.QuizDraft{Title: "Empty"})
	if verr, ok := domain.IsValidation(err); !ok || verr.Fields["questions"] == "" {
		t.Fatalf("expected questions message, got %v", err)
	}

	quizzes, _ := f.service.ListQuizzes(ctx, domain.OrderNewest)
	if len(quizzes) != 0 {
		t.Fatalf("expected nothing written on validation failure")
	}
}

func TestSubmitAnswersRequiresAnswersAndUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)
	quiz, _ := f.service.CreateQuiz(ctx, admin, geoDraft())

	if _, err := f.service.SubmitAnswers(ctx, session.New("anon"), quiz.ID, map[int64]string{quiz.Questions[0].ID: "Oslo"}, ""); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	if _, err := f.service.SubmitAnswers(ctx, player, quiz.ID, map[int64]string{quiz.Questions[0].ID: "   "}, ""); err == nil {
		t.Fatalf("expected blank submission to fail")
	} else if _, ok := domain.IsValidation(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.service.SubmitAnswers(ctx, player, 999, map[int64]string{1: "x"}, ""); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestAnswerVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := signedIn("admin", "admin@example.com", domain.RoleAdmin)
	quiz, _ := f.service.CreateQuiz(ctx, admin, geoDraft())
	qid := quiz.Questions[0].ID

	p1 := signedIn("p1", "p1@example.com", domain.RoleUser)
	p2 := signedIn("p2", "p2@example.com", domain.RoleUser)
	_, _ = f.service.SubmitAnswers(ctx, p1, quiz.ID, map[int64]string{qid: "Oslo"}, "One")
	_, _ = f.service.SubmitAnswers(ctx, p2, quiz.ID, map[int64]string{qid: "Bergen"}, "Two")

	if got, _ := f.service.FetchAllAnswers(ctx, p1); len(got) != 1 || got[0].UserID != "p1" {
		t.Fatalf("expected p1 to see only own answer, got %+v", got)
	}
	if got, _ := f.service.FetchAllAnswers(ctx, admin); len(got) != 2 {
		t.Fatalf("expected admin to see all answers, got %d", len(got))
	}
	if got, _ := f.service.FetchQuizAnswers(ctx, p1, quiz.ID); len(got) != 0 {
		t.Fatalf("expected non-admin quiz answers to be empty, got %d", len(got))
	}
	if got, _ := f.service.FetchQuizAnswers(ctx, admin, quiz.ID); len(got) != 2 {
		t.Fatalf("expected admin quiz answers, got %d", len(got))
	}

	groups := app.GroupByQuiz(mustAll(t, f, admin))
	if len(groups) != 1 || groups[0].QuizTitle != "Geo" || len(groups[0].Answers) != 2 {
		t.Fatalf("unexpected grouping %+v", groups)
	}
}

func mustAll(t *testing.T, f *fixture, sess session.Reader) []domain.AnswerView {
	t.Helper()
	all, err := f.service.FetchAllAnswers(context.Background(), sess)
	if err != nil {
		t.Fatalf("fetch answers: %v", err)
	}
	return all
}

func TestLeaderboardPublishedToSubscribers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ch, cancel := f.hub.Subscribe(events.TopicRankings)
	defer cancel()

	player := signedIn("p1", "p1@example.com", domain.RoleUser)
	if _, err := f.rankings.Record(ctx, player, 2, 50); err != nil {
		t.Fatalf("record: %v", err)
	}

	select {
	case evt := <-ch:
		board, ok := evt.Payload.([]domain.UserPoints)
		if !ok || len(board) != 1 || board[0].TotalPoints != 2 {
			t.Fatalf("unexpected rankings payload %+v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected rankings event")
	}

	if _, err := f.rankings.Record(ctx, session.New("anon"), 1, 100); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected anonymous record to fail, got %v", err)
	}
}

func TestDirectQuizCacheReadsThrough(t *testing.T) {
	f := newFixture()
	cache := app.NewDirectQuizCache(app.NewQuizLoader(f.store))

	if _, err := cache.GetQuiz(context.Background(), 404); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}

	quiz, err := f.service.CreateQuiz(context.Background(), signedIn("a1", "boss@example.com", domain.RoleAdmin), geoDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, err := cache.GetQuiz(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, q := range loaded.Questions {
		if q.Choices == nil {
			t.Fatalf("question %d has nil choices", q.ID)
		}
	}
}
