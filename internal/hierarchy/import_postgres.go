package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/importer"
)

// importTimeout is longer than the per-query timeout because an import walks
// a whole subject tree in one transaction.
const importTimeout = 30 * time.Second

// ImportDocument materializes a validated document inside one transaction,
// reusing existing rows by name. Any failure rolls back the whole tree.
func (s *PostgresStore) ImportDocument(ctx context.Context, doc *importer.Document) (*importer.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Storage("begin import", err)
	}
	defer tx.Rollback(ctx)

	summary := importer.NewSummary()

	subjectID, err := getOrCreate(ctx, tx, summary, "subject",
		`SELECT id FROM subjects WHERE name = $1`,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`,
		doc.Subject.Name)
	if err != nil {
		return nil, err
	}

	for _, topicDoc := range doc.Subject.Topics {
		topicID, err := getOrCreateChild(ctx, tx, summary, "topic", "topics", "subject_id", subjectID, topicDoc.Name)
		if err != nil {
			return nil, err
		}

		for _, classDoc := range topicDoc.Classes {
			classID, err := getOrCreateChild(ctx, tx, summary, "class", "classes", "topic_id", topicID, classDoc.Name)
			if err != nil {
				return nil, err
			}

			for _, levelDoc := range classDoc.Levels {
				levelID, err := getOrCreateChild(ctx, tx, summary, "level", "levels", "class_id", classID, levelDoc.Name)
				if err != nil {
					return nil, err
				}

				for _, quizDoc := range levelDoc.Quizzes {
					if err := importQuiz(ctx, tx, summary, levelID, quizDoc); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Storage("commit import", err)
	}
	return summary, nil
}

// importQuiz creates the quiz or, when one with the same title exists under
// the level, replaces its metadata and rebuilds its questions.
func importQuiz(ctx context.Context, tx pgx.Tx, summary *importer.Summary, levelID int64, quizDoc importer.QuizDoc) error {
	var quizID int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM quizzes WHERE level_id = $1 AND title = $2`,
		levelID, quizDoc.Title,
	).Scan(&quizID)

	switch {
	case err == nil:
		if _, err := tx.Exec(ctx,
			`UPDATE quizzes SET description = $2, time_limit = $3, updated_at = NOW() WHERE id = $1`,
			quizID, quizDoc.Description, quizDoc.TimeLimit,
		); err != nil {
			return domain.Storage("update imported quiz", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM questions WHERE quiz_id = $1`, quizID,
		); err != nil {
			return domain.Storage("replace imported questions", err)
		}
		summary.AddReused("quiz")
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx,
			`INSERT INTO quizzes (level_id, title, description, time_limit)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			levelID, quizDoc.Title, quizDoc.Description, quizDoc.TimeLimit,
		).Scan(&quizID)
		if err != nil {
			return domain.Storage("insert imported quiz", err)
		}
		summary.AddCreated("quiz")
	default:
		return domain.Storage("find quiz", err)
	}

	for _, questionDoc := range quizDoc.Questions {
		if _, err := insertQuestion(ctx, tx, quizID, QuestionDraft{
			Text:        questionDoc.Question,
			Options:     questionDoc.Options,
			Answer:      questionDoc.Answer,
			Explanation: questionDoc.Explanation,
		}); err != nil {
			return err
		}
		summary.AddCreated("question")
	}
	return nil
}

func getOrCreate(ctx context.Context, tx pgx.Tx, summary *importer.Summary, kind, selectSQL, insertSQL string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, selectSQL, args...).Scan(&id)
	if err == nil {
		summary.AddReused(kind)
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.Storage("find "+kind, err)
	}

	if err := tx.QueryRow(ctx, insertSQL, args...).Scan(&id); err != nil {
		return 0, domain.Storage("insert "+kind, err)
	}
	summary.AddCreated(kind)
	return id, nil
}

func getOrCreateChild(ctx context.Context, tx pgx.Tx, summary *importer.Summary, kind, table, parentCol string, parentID int64, name string) (int64, error) {
	return getOrCreate(ctx, tx, summary, kind,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1 AND name = $2`, table, parentCol),
		fmt.Sprintf(`INSERT INTO %s (%s, name) VALUES ($1, $2) RETURNING id`, table, parentCol),
		parentID, name)
}
