package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"
)

func TestStoreQuizOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	older, _ := store.InsertQuiz(ctx, domain.Quiz{Title: "Older", CreatedAt: base})
	newer, _ := store.InsertQuiz(ctx, domain.Quiz{Title: "Newer", CreatedAt: base.Add(time.Hour)})
	for i := 0; i < 3; i++ {
		if err := store.IncrementAnswersCount(ctx, older.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	newest, _ := store.ListQuizzes(ctx, domain.OrderNewest)
	if newest[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %q", newest[0].Title)
	}
	top, _ := store.ListQuizzes(ctx, domain.OrderTop)
	if top[0].ID != older.ID || top[0].AnswersCount != 3 {
		t.Fatalf("expected most answered first, got %+v", top[0])
	}
}

func TestStoreIncrementIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz, _ := store.InsertQuiz(ctx, domain.Quiz{Title: "Busy"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.IncrementAnswersCount(ctx, quiz.ID)
		}()
	}
	wg.Wait()

	got, _ := store.GetQuiz(ctx, quiz.ID)
	if got.AnswersCount != 50 {
		t.Fatalf("expected 50, got %d", got.AnswersCount)
	}
}

func TestStoreAnswerJoinsAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	quiz, _ := store.InsertQuiz(ctx, domain.Quiz{Title: "Geo", CreatedBy: "author"})
	q, _ := store.InsertQuestion(ctx, domain.Question{QuizID: quiz.ID, Text: "Capital of Norway?", Type: domain.QuestionText})
	other, _ := store.InsertQuiz(ctx, domain.Quiz{Title: "Films", CreatedBy: "someone"})
	oq, _ := store.InsertQuestion(ctx, domain.Question{QuizID: other.ID, Text: "Rating?", Type: domain.QuestionText})

	_ = store.InsertAnswers(ctx, []domain.Answer{
		{QuestionID: q.ID, UserID: "player", AnswerText: "Oslo"},
		{QuestionID: oq.ID, UserID: "player", AnswerText: "7.5"},
		{QuestionID: oq.ID, UserID: "stranger", AnswerText: "8"},
		{QuestionID: 999, UserID: "player", AnswerText: "orphan"},
	})

	all, _ := store.ListAnswers(ctx, app.AnswerFilter{})
	if len(all) != 4 {
		t.Fatalf("expected 4 answers, got %d", len(all))
	}

	mine, _ := store.ListAnswers(ctx, app.AnswerFilter{UserID: "player"})
	if len(mine) != 3 {
		t.Fatalf("expected 3 own answers, got %d", len(mine))
	}
	var orphan domain.AnswerView
	for _, a := range mine {
		if a.AnswerText == "orphan" {
			orphan = a
		}
	}
	if orphan.QuizTitle != domain.UnknownQuiz || orphan.QuestionText != domain.UnknownQuestion {
		t.Fatalf("expected unknown placeholders, got %+v", orphan)
	}

	visible, _ := store.ListAnswers(ctx, app.AnswerFilter{VisibleTo: "author"})
	if len(visible) != 1 || visible[0].QuizTitle != "Geo" || visible[0].QuestionText != "Capital of Norway?" {
		t.Fatalf("expected the author to see answers to their quiz, got %+v", visible)
	}

	byQuiz, _ := store.ListAnswers(ctx, app.AnswerFilter{QuizID: other.ID})
	if len(byQuiz) != 2 {
		t.Fatalf("expected 2 answers to Films, got %d", len(byQuiz))
	}
}

func TestStoreUserPointsRunningAverage(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.RecordUserPoints(ctx, "a@b.no", 3, 100); err != nil {
		t.Fatalf("record: %v", err)
	}
	row, _ := store.RecordUserPoints(ctx, "a@b.no", 1, 50)
	if row.TotalPoints != 4 || row.QuizzesPlayed != 2 || math.Abs(row.Accuracy-75) > 1e-9 {
		t.Fatalf("unexpected row %+v", row)
	}

	_, _ = store.RecordUserPoints(ctx, "c@d.no", 10, 100)
	board, _ := store.ListUserPoints(ctx, 1)
	if len(board) != 1 || board[0].UserEmail != "c@d.no" {
		t.Fatalf("expected leader c@d.no, got %+v", board)
	}
}

func TestStoreProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.GetProfile(ctx, "u1"); !errors.Is(err, domain.ErrNoRows) {
		t.Fatalf("expected no rows, got %v", err)
	}
	_ = store.InsertProfile(ctx, domain.Profile{ID: "u1", Email: "a@b.no"})
	if err := store.SetRoleByEmail(ctx, "A@B.no", domain.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	p, _ := store.GetProfile(ctx, "u1")
	if p.Role != domain.RoleAdmin {
		t.Fatalf("expected admin, got %q", p.Role)
	}
	if err := store.SetRoleByEmail(ctx, "nobody@b.no", domain.RoleAdmin); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}
