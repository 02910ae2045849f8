package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-portal/internal/app"
	"quiz-portal/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store implements app.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ app.Store = (*Store)(nil)

func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNoRows
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	var role string
	err := s.pool.QueryRow(ctx, `SELECT id, email, role FROM profiles WHERE id=$1`, userID).Scan(&p.ID, &p.Email, &role)
	if err != nil {
		return domain.Profile{}, noRows(err)
	}
	p.Role = domain.ParseRole(role)
	return p, nil
}

func (s *Store) InsertProfile(ctx context.Context, profile domain.Profile) error {
	role := profile.Role
	if role == "" {
		role = domain.RoleUser
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, role) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Email, string(role))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) SetRoleByEmail(ctx context.Context, email string, role domain.Role) error {
	tag, err := s.pool.Exec(ctx, `UPDATE profiles SET role=$1 WHERE lower(email)=lower($2)`, string(role), email)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

const quizColumns = `id, title, description, created_by, created_at, answers_count, thumbnail_url`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.CreatedBy, &q.CreatedAt, &q.AnswersCount, &q.ThumbnailURL)
	return q, err
}

func (s *Store) ListQuizzes(ctx context.Context, order domain.QuizOrder) ([]domain.Quiz, error) {
	orderBy := `created_at DESC, id DESC`
	if order == domain.OrderTop {
		orderBy = `answers_count DESC, created_at DESC, id DESC`
	}
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY `+orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	q, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
	if err != nil {
		return domain.Quiz{}, noRows(err)
	}
	return q, nil
}

func (s *Store) InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	out, err := scanQuiz(s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, created_by, created_at, thumbnail_url)
		 VALUES ($1, $2, $3, COALESCE($4, now()), $5)
		 RETURNING `+quizColumns,
		quiz.Title, quiz.Description, quiz.CreatedBy, nullTime(quiz.CreatedAt), quiz.ThumbnailURL))
	if err != nil {
		return domain.Quiz{}, err
	}
	return out, nil
}

// IncrementAnswersCount bumps the counter in one statement, so concurrent
// submissions are never lost.
func (s *Store) IncrementAnswersCount(ctx context.Context, quizID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET answers_count = answers_count + 1 WHERE id=$1`, quizID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoRows
	}
	return nil
}

const questionColumns = `id, quiz_id, question_text, question_type, question_subtype, image_url, image_attribution, created_at`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var typ, subtype string
	err := row.Scan(&q.ID, &q.QuizID, &q.Text, &typ, &subtype, &q.ImageURL, &q.ImageAttribution, &q.CreatedAt)
	q.Type = domain.QuestionType(typ)
	q.Subtype = domain.QuestionSubtype(subtype)
	return q, err
}

func (s *Store) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id=$1 ORDER BY created_at ASC, id ASC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) InsertQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	return scanQuestion(s.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, question_text, question_type, question_subtype, image_url, image_attribution, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		 RETURNING `+questionColumns,
		question.QuizID, question.Text, string(question.Type), string(question.Subtype),
		question.ImageURL, question.ImageAttribution, nullTime(question.CreatedAt)))
}

func (s *Store) ListChoices(ctx context.Context, questionIDs []int64) ([]domain.Choice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, choice_text, is_correct FROM question_choices
		 WHERE question_id = ANY($1) ORDER BY id ASC`, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Choice{}
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertChoices(ctx context.Context, choices []domain.Choice) ([]domain.Choice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]domain.Choice, 0, len(choices))
	for _, c := range choices {
		err := tx.QueryRow(ctx,
			`INSERT INTO question_choices (question_id, choice_text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
			c.QuestionID, c.Text, c.IsCorrect).Scan(&c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListTextAnswerKeys(ctx context.Context, questionIDs []int64) ([]domain.TextAnswerKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, correct_answer, tolerance FROM text_answers WHERE question_id = ANY($1)`, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TextAnswerKey{}
	for rows.Next() {
		var k domain.TextAnswerKey
		if err := rows.Scan(&k.QuestionID, &k.CorrectAnswer, &k.Tolerance); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) InsertTextAnswerKey(ctx context.Context, key domain.TextAnswerKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO text_answers (question_id, correct_answer, tolerance) VALUES ($1, $2, $3)
		 ON CONFLICT (question_id) DO UPDATE SET correct_answer=EXCLUDED.correct_answer, tolerance=EXCLUDED.tolerance`,
		key.QuestionID, key.CorrectAnswer, key.Tolerance)
	return err
}

func (s *Store) InsertAnswers(ctx context.Context, answers []domain.Answer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, a := range answers {
		_, err := tx.Exec(ctx,
			`INSERT INTO answers (question_id, user_id, answer_text, is_correct, participant_name, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))`,
			a.QuestionID, a.UserID, a.AnswerText, a.IsCorrect, a.ParticipantName, nullTime(a.SubmittedAt))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListAnswers(ctx context.Context, filter app.AnswerFilter) ([]domain.AnswerView, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, COALESCE(a.question_id, 0), a.user_id, a.answer_text, a.is_correct,
		       a.participant_name, a.submitted_at,
		       COALESCE(q.question_text, ''), COALESCE(q.quiz_id, 0),
		       COALESCE(z.title, ''), COALESCE(z.created_by, '')
		FROM answers a
		LEFT JOIN questions q ON q.id = a.question_id
		LEFT JOIN quizzes z ON z.id = q.quiz_id
		WHERE ($1::text = '' OR a.user_id = $1::text)
		  AND ($2::text = '' OR a.user_id = $2::text OR z.created_by = $2::text)
		  AND ($3::bigint = 0 OR q.quiz_id = $3::bigint)
		ORDER BY a.submitted_at DESC, a.id DESC`,
		filter.UserID, filter.VisibleTo, filter.QuizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AnswerView{}
	for rows.Next() {
		var v domain.AnswerView
		if err := rows.Scan(&v.ID, &v.QuestionID, &v.UserID, &v.AnswerText, &v.IsCorrect,
			&v.ParticipantName, &v.SubmittedAt,
			&v.QuestionText, &v.QuizID, &v.QuizTitle, &v.QuizCreatedBy); err != nil {
			return nil, err
		}
		if v.QuestionText == "" {
			v.QuestionText = domain.UnknownQuestion
		}
		if v.QuizTitle == "" {
			v.QuizTitle = domain.UnknownQuiz
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) ListUserPoints(ctx context.Context, limit int) ([]domain.UserPoints, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_email, total_points, quizzes_played, accuracy, updated_at FROM user_points
		 ORDER BY total_points DESC, user_email ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.UserPoints{}
	for rows.Next() {
		var p domain.UserPoints
		if err := rows.Scan(&p.UserEmail, &p.TotalPoints, &p.QuizzesPlayed, &p.Accuracy, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordUserPoints upserts the leaderboard row in one statement; the running
// accuracy average reads the old row values.
func (s *Store) RecordUserPoints(ctx context.Context, email string, points int, accuracy float64) (domain.UserPoints, error) {
	var p domain.UserPoints
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_points (user_email, total_points, quizzes_played, accuracy, updated_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (user_email) DO UPDATE SET
			total_points   = user_points.total_points + EXCLUDED.total_points,
			accuracy       = (user_points.accuracy * user_points.quizzes_played + EXCLUDED.accuracy) / (user_points.quizzes_played + 1),
			quizzes_played = user_points.quizzes_played + 1,
			updated_at     = now()
		RETURNING user_email, total_points, quizzes_played, accuracy, updated_at`,
		email, points, accuracy).Scan(&p.UserEmail, &p.TotalPoints, &p.QuizzesPlayed, &p.Accuracy, &p.UpdatedAt)
	if err != nil {
		return domain.UserPoints{}, err
	}
	return p, nil
}
