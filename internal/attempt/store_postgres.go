package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed attempt store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, userID, quizID int64, startedAt time.Time) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a := Attempt{UserID: userID, QuizID: quizID, StartedAt: startedAt}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (user_id, quiz_id, started_at)
		 VALUES ($1, $2, $3) RETURNING id`,
		userID, quizID, startedAt,
	).Scan(&a.ID)
	if err != nil {
		return Attempt{}, domain.Storage("create attempt", err)
	}
	return a, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a := &Attempt{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, quiz_id, started_at, completed_at, score, correct_count, total_questions
		 FROM quiz_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.QuizID, &a.StartedAt, &a.CompletedAt, &a.Score, &a.CorrectCount, &a.TotalQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("attempt", id)
	}
	if err != nil {
		return nil, domain.Storage("get attempt", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT question_id, COALESCE(selected_option_id, 0)
		 FROM quiz_attempt_answers WHERE attempt_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, domain.Storage("load attempt answers", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sel Selection
		if err := rows.Scan(&sel.QuestionID, &sel.SelectedOptionID); err != nil {
			return nil, domain.Storage("scan attempt answer", err)
		}
		a.Selections = append(a.Selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate attempt answers", err)
	}
	return a, nil
}

func (s *PostgresStore) Finalize(ctx context.Context, a *Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Storage("begin finalize", err)
	}
	defer tx.Rollback(ctx)

	// The completed_at guard makes finalization single-shot even when two
	// submissions race.
	tag, err := tx.Exec(ctx,
		`UPDATE quiz_attempts
		 SET completed_at = $2, score = $3, correct_count = $4, total_questions = $5
		 WHERE id = $1 AND completed_at IS NULL`,
		a.ID, a.CompletedAt, a.Score, a.CorrectCount, a.TotalQuestions)
	if err != nil {
		return domain.Storage("finalize attempt", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE id = $1)`, a.ID,
		).Scan(&exists); err != nil {
			return domain.Storage("check attempt", err)
		}
		if !exists {
			return domain.NotFound("attempt", a.ID)
		}
		return domain.Conflict("attempt %d already submitted", a.ID)
	}

	for i, sel := range a.Selections {
		var optionID any
		if sel.SelectedOptionID != 0 {
			optionID = sel.SelectedOptionID
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_attempt_answers (attempt_id, position, question_id, selected_option_id)
			 VALUES ($1, $2, $3, $4)`,
			a.ID, i+1, sel.QuestionID, optionID,
		); err != nil {
			return domain.Storage("record attempt answer", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Storage("commit finalize", err)
	}
	return nil
}

func (s *PostgresStore) ListByUserQuiz(ctx context.Context, userID, quizID int64) ([]Attempt, error) {
	return s.list(ctx,
		`SELECT id, user_id, quiz_id, started_at, completed_at, score, correct_count, total_questions
		 FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2 ORDER BY id DESC`,
		userID, quizID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Attempt, error) {
	return s.list(ctx,
		`SELECT id, user_id, quiz_id, started_at, completed_at, score, correct_count, total_questions
		 FROM quiz_attempts ORDER BY id DESC`)
}

func (s *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Storage("list attempts", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.StartedAt, &a.CompletedAt, &a.Score, &a.CorrectCount, &a.TotalQuestions); err != nil {
			return nil, domain.Storage("scan attempt", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate attempts", err)
	}
	return out, nil
}

func (s *PostgresStore) Statistics(ctx context.Context) (Statistics, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var stats Statistics
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM users WHERE is_admin),
		   COUNT(*),
		   COALESCE(AVG(score), 0),
		   COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - started_at)), 0)
		 FROM quiz_attempts WHERE completed_at IS NOT NULL`,
	).Scan(&stats.TotalUsers, &stats.AdminUsers, &stats.TotalAttempts, &stats.AverageScore, &stats.AverageSeconds)
	if err != nil {
		return Statistics{}, domain.Storage("aggregate attempts", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, COUNT(*) AS attempts
		 FROM quiz_attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.completed_at IS NOT NULL
		 GROUP BY u.id, u.username
		 ORDER BY attempts DESC, u.id
		 LIMIT 5`)
	if err != nil {
		return Statistics{}, domain.Storage("rank active users", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u ActiveUser
		if err := rows.Scan(&u.UserID, &u.Username, &u.AttemptCount); err != nil {
			return Statistics{}, domain.Storage("scan active user", err)
		}
		stats.ActiveUsers = append(stats.ActiveUsers, u)
	}
	if err := rows.Err(); err != nil {
		return Statistics{}, domain.Storage("iterate active users", err)
	}
	return stats, nil
}
