package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed hierarchy store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// mapPgError translates low-level pgx failures into the domain taxonomy.
// Unique violations become ConflictError; everything else is a StorageError.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Conflict("duplicate name (%s)", op)
	}
	return domain.Storage(op, err)
}

// --- Subjects ---

func (s *PostgresStore) CreateSubject(ctx context.Context, actor domain.Identity, name string) (Subject, error) {
	if err := actor.RequireAdmin("create subject"); err != nil {
		return Subject{}, err
	}
	name, err := validName(name)
	if err != nil {
		return Subject{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var sub Subject
	err = s.pool.QueryRow(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id, name`,
		name,
	).Scan(&sub.ID, &sub.Name)
	if err != nil {
		return Subject{}, mapPgError("create subject", err)
	}
	return sub, nil
}

func (s *PostgresStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, domain.Storage("list subjects", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, domain.Storage("scan subject", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate subjects", err)
	}
	return out, nil
}

func (s *PostgresStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var sub Subject
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM subjects WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subject{}, domain.NotFound("subject", id)
	}
	if err != nil {
		return Subject{}, domain.Storage("get subject", err)
	}
	return sub, nil
}

func (s *PostgresStore) RenameSubject(ctx context.Context, actor domain.Identity, id int64, name string) error {
	if err := actor.RequireAdmin("rename subject"); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `UPDATE subjects SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return mapPgError("rename subject", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("subject", id)
	}
	return nil
}

func (s *PostgresStore) DeleteSubject(ctx context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete subject"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "subjects", "subject", id)
}

// --- Topics / Classes / Levels ---
//
// The three middle tiers are identical in shape (id, parent id, name), so
// they share the named-child helpers below.

func (s *PostgresStore) CreateTopic(ctx context.Context, actor domain.Identity, subjectID int64, name string) (Topic, error) {
	id, name, err := s.createNamed(ctx, actor, namedTier{"topics", "subject_id", "topic", "subjects", "subject"}, subjectID, name)
	if err != nil {
		return Topic{}, err
	}
	return Topic{ID: id, SubjectID: subjectID, Name: name}, nil
}

func (s *PostgresStore) ListTopics(ctx context.Context, subjectID int64) ([]Topic, error) {
	rows, err := s.listNamed(ctx, namedTier{"topics", "subject_id", "topic", "subjects", "subject"}, subjectID)
	if err != nil {
		return nil, err
	}
	out := make([]Topic, len(rows))
	for i, r := range rows {
		out[i] = Topic{ID: r.id, SubjectID: subjectID, Name: r.name}
	}
	return out, nil
}

func (s *PostgresStore) GetTopic(ctx context.Context, id int64) (Topic, error) {
	r, err := s.getNamed(ctx, namedTier{"topics", "subject_id", "topic", "subjects", "subject"}, id)
	if err != nil {
		return Topic{}, err
	}
	return Topic{ID: r.id, SubjectID: r.parentID, Name: r.name}, nil
}

func (s *PostgresStore) RenameTopic(ctx context.Context, actor domain.Identity, id int64, name string) error {
	return s.renameNamed(ctx, actor, namedTier{"topics", "subject_id", "topic", "subjects", "subject"}, id, name)
}

func (s *PostgresStore) DeleteTopic(ctx context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete topic"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "topics", "topic", id)
}

func (s *PostgresStore) CreateClass(ctx context.Context, actor domain.Identity, topicID int64, name string) (Class, error) {
	id, name, err := s.createNamed(ctx, actor, namedTier{"classes", "topic_id", "class", "topics", "topic"}, topicID, name)
	if err != nil {
		return Class{}, err
	}
	return Class{ID: id, TopicID: topicID, Name: name}, nil
}

func (s *PostgresStore) ListClasses(ctx context.Context, topicID int64) ([]Class, error) {
	rows, err := s.listNamed(ctx, namedTier{"classes", "topic_id", "class", "topics", "topic"}, topicID)
	if err != nil {
		return nil, err
	}
	out := make([]Class, len(rows))
	for i, r := range rows {
		out[i] = Class{ID: r.id, TopicID: topicID, Name: r.name}
	}
	return out, nil
}

func (s *PostgresStore) GetClass(ctx context.Context, id int64) (Class, error) {
	r, err := s.getNamed(ctx, namedTier{"classes", "topic_id", "class", "topics", "topic"}, id)
	if err != nil {
		return Class{}, err
	}
	return Class{ID: r.id, TopicID: r.parentID, Name: r.name}, nil
}

func (s *PostgresStore) RenameClass(ctx context.Context, actor domain.Identity, id int64, name string) error {
	return s.renameNamed(ctx, actor, namedTier{"classes", "topic_id", "class", "topics", "topic"}, id, name)
}

func (s *PostgresStore) DeleteClass(ctx context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete class"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "classes", "class", id)
}

func (s *PostgresStore) CreateLevel(ctx context.Context, actor domain.Identity, classID int64, name string) (Level, error) {
	id, name, err := s.createNamed(ctx, actor, namedTier{"levels", "class_id", "level", "classes", "class"}, classID, name)
	if err != nil {
		return Level{}, err
	}
	return Level{ID: id, ClassID: classID, Name: name}, nil
}

func (s *PostgresStore) ListLevels(ctx context.Context, classID int64) ([]Level, error) {
	rows, err := s.listNamed(ctx, namedTier{"levels", "class_id", "level", "classes", "class"}, classID)
	if err != nil {
		return nil, err
	}
	out := make([]Level, len(rows))
	for i, r := range rows {
		out[i] = Level{ID: r.id, ClassID: classID, Name: r.name}
	}
	return out, nil
}

func (s *PostgresStore) GetLevel(ctx context.Context, id int64) (Level, error) {
	r, err := s.getNamed(ctx, namedTier{"levels", "class_id", "level", "classes", "class"}, id)
	if err != nil {
		return Level{}, err
	}
	return Level{ID: r.id, ClassID: r.parentID, Name: r.name}, nil
}

func (s *PostgresStore) RenameLevel(ctx context.Context, actor domain.Identity, id int64, name string) error {
	return s.renameNamed(ctx, actor, namedTier{"levels", "class_id", "level", "classes", "class"}, id, name)
}

func (s *PostgresStore) DeleteLevel(ctx context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete level"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "levels", "level", id)
}

// namedTier describes one of the middle hierarchy tables.
type namedTier struct {
	table      string // child table
	parentCol  string // FK column on the child table
	kind       string // child kind for error messages
	parentTbl  string // parent table
	parentKind string // parent kind for NotFoundError
}

type namedRow struct {
	id       int64
	parentID int64
	name     string
}

func (s *PostgresStore) createNamed(ctx context.Context, actor domain.Identity, tier namedTier, parentID int64, name string) (int64, string, error) {
	if err := actor.RequireAdmin("create " + tier.kind); err != nil {
		return 0, "", err
	}
	name, err := validName(name)
	if err != nil {
		return 0, "", err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireRow(ctx, tier.parentTbl, tier.parentKind, parentID); err != nil {
		return 0, "", err
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, name) VALUES ($1, $2) RETURNING id`, tier.table, tier.parentCol),
		parentID, name,
	).Scan(&id)
	if err != nil {
		return 0, "", mapPgError("create "+tier.kind, err)
	}
	return id, name, nil
}

func (s *PostgresStore) listNamed(ctx context.Context, tier namedTier, parentID int64) ([]namedRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireRow(ctx, tier.parentTbl, tier.parentKind, parentID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, name FROM %s WHERE %s = $1 ORDER BY id`, tier.table, tier.parentCol),
		parentID,
	)
	if err != nil {
		return nil, domain.Storage("list "+tier.kind, err)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		r := namedRow{parentID: parentID}
		if err := rows.Scan(&r.id, &r.name); err != nil {
			return nil, domain.Storage("scan "+tier.kind, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate "+tier.kind, err)
	}
	return out, nil
}

func (s *PostgresStore) getNamed(ctx context.Context, tier namedTier, id int64) (namedRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var r namedRow
	r.id = id
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s, name FROM %s WHERE id = $1`, tier.parentCol, tier.table),
		id,
	).Scan(&r.parentID, &r.name)
	if errors.Is(err, pgx.ErrNoRows) {
		return namedRow{}, domain.NotFound(tier.kind, id)
	}
	if err != nil {
		return namedRow{}, domain.Storage("get "+tier.kind, err)
	}
	return r, nil
}

func (s *PostgresStore) renameNamed(ctx context.Context, actor domain.Identity, tier namedTier, id int64, name string) error {
	if err := actor.RequireAdmin("rename " + tier.kind); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET name = $2 WHERE id = $1`, tier.table),
		id, name,
	)
	if err != nil {
		return mapPgError("rename "+tier.kind, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound(tier.kind, id)
	}
	return nil
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, kind string, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return domain.Storage("delete "+kind, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound(kind, id)
	}
	return nil
}

func (s *PostgresStore) requireRow(ctx context.Context, table, kind string, id int64) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table),
		id,
	).Scan(&exists)
	if err != nil {
		return domain.Storage("check "+kind, err)
	}
	if !exists {
		return domain.NotFound(kind, id)
	}
	return nil
}

// --- Quizzes ---

func (s *PostgresStore) CreateQuiz(ctx context.Context, actor domain.Identity, levelID int64, draft QuizDraft) (Quiz, error) {
	if err := actor.RequireAdmin("create quiz"); err != nil {
		return Quiz{}, err
	}
	draft, err := validQuizDraft(draft)
	if err != nil {
		return Quiz{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireRow(ctx, "levels", "level", levelID); err != nil {
		return Quiz{}, err
	}

	var quiz Quiz
	err = s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (level_id, title, description, time_limit)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, level_id, title, description, time_limit, visible, created_at, updated_at`,
		levelID, draft.Title, draft.Description, draft.TimeLimit,
	).Scan(&quiz.ID, &quiz.LevelID, &quiz.Title, &quiz.Description, &quiz.TimeLimit, &quiz.Visible, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return Quiz{}, mapPgError("create quiz", err)
	}
	return quiz, nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, actor domain.Identity, levelID int64) ([]Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireRow(ctx, "levels", "level", levelID); err != nil {
		return nil, err
	}

	query := `SELECT id, level_id, title, description, time_limit, visible, created_at, updated_at
	          FROM quizzes WHERE level_id = $1`
	if !actor.IsAdmin {
		query += ` AND visible`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, levelID)
	if err != nil {
		return nil, domain.Storage("list quizzes", err)
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.LevelID, &q.Title, &q.Description, &q.TimeLimit, &q.Visible, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, domain.Storage("scan quiz", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate quizzes", err)
	}
	return out, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, actor domain.Identity, id int64) (Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var q Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, level_id, title, description, time_limit, visible, created_at, updated_at
		 FROM quizzes WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.LevelID, &q.Title, &q.Description, &q.TimeLimit, &q.Visible, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quiz{}, domain.NotFound("quiz", id)
	}
	if err != nil {
		return Quiz{}, domain.Storage("get quiz", err)
	}
	if !q.Visible && !actor.IsAdmin {
		return Quiz{}, domain.NotFound("quiz", id)
	}
	return q, nil
}

func (s *PostgresStore) GetQuizContent(ctx context.Context, id int64) (*QuizContent, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var content QuizContent
	err := s.pool.QueryRow(ctx,
		`SELECT id, level_id, title, description, time_limit, visible, created_at, updated_at
		 FROM quizzes WHERE id = $1`,
		id,
	).Scan(&content.ID, &content.LevelID, &content.Title, &content.Description,
		&content.TimeLimit, &content.Visible, &content.CreatedAt, &content.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("quiz", id)
	}
	if err != nil {
		return nil, domain.Storage("get quiz", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, text, position, explanation
		 FROM questions WHERE quiz_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, domain.Storage("load questions", err)
	}
	defer rows.Close()

	index := map[int64]int{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Position, &q.Explanation); err != nil {
			return nil, domain.Storage("scan question", err)
		}
		index[q.ID] = len(content.Questions)
		content.Questions = append(content.Questions, QuestionContent{Question: q})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate questions", err)
	}

	optRows, err := s.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.text, o.position, o.is_correct
		 FROM answer_options o
		 JOIN questions q ON q.id = o.question_id
		 WHERE q.quiz_id = $1
		 ORDER BY o.question_id, o.position`,
		id,
	)
	if err != nil {
		return nil, domain.Storage("load options", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt AnswerOption
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Position, &opt.Correct); err != nil {
			return nil, domain.Storage("scan option", err)
		}
		if i, ok := index[opt.QuestionID]; ok {
			content.Questions[i].Options = append(content.Questions[i].Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, domain.Storage("iterate options", err)
	}
	return &content, nil
}

func (s *PostgresStore) UpdateQuiz(ctx context.Context, actor domain.Identity, id int64, draft QuizDraft) error {
	if err := actor.RequireAdmin("update quiz"); err != nil {
		return err
	}
	draft, err := validQuizDraft(draft)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET title = $2, description = $3, time_limit = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, draft.Title, draft.Description, draft.TimeLimit,
	)
	if err != nil {
		return mapPgError("update quiz", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("quiz", id)
	}
	return nil
}

func (s *PostgresStore) SetQuizVisibility(ctx context.Context, actor domain.Identity, id int64, visible bool) error {
	if err := actor.RequireAdmin("toggle quiz visibility"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET visible = $2, updated_at = NOW() WHERE id = $1`,
		id, visible,
	)
	if err != nil {
		return domain.Storage("toggle quiz visibility", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("quiz", id)
	}
	return nil
}

func (s *PostgresStore) DeleteQuiz(ctx context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete quiz"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "quizzes", "quiz", id)
}

// --- Questions ---

func (s *PostgresStore) AddQuestion(ctx context.Context, actor domain.Identity, quizID int64, draft QuestionDraft) (Question, error) {
	if err := actor.RequireAdmin("add question"); err != nil {
		return Question{}, err
	}
	draft, err := validQuestionDraft(draft)
	if err != nil {
		return Question{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Question{}, domain.Storage("begin add question", err)
	}
	defer tx.Rollback(ctx)

	if err := s.requireRowTx(ctx, tx, "quizzes", "quiz", quizID); err != nil {
		return Question{}, err
	}

	question, err := insertQuestion(ctx, tx, quizID, draft)
	if err != nil {
		return Question{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Question{}, domain.Storage("commit add question", err)
	}
	return question, nil
}

// insertQuestion appends a question and its options at the next position.
// Used by both AddQuestion and the bulk importer, always inside a tx.
func insertQuestion(ctx context.Context, tx pgx.Tx, quizID int64, draft QuestionDraft) (Question, error) {
	var question Question
	err := tx.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, text, position, explanation)
		 VALUES ($1, $2,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE quiz_id = $1),
		         $3)
		 RETURNING id, quiz_id, text, position, explanation`,
		quizID, draft.Text, draft.Explanation,
	).Scan(&question.ID, &question.QuizID, &question.Text, &question.Position, &question.Explanation)
	if err != nil {
		return Question{}, domain.Storage("insert question", err)
	}

	for i, text := range draft.Options {
		if _, err := tx.Exec(ctx,
			`INSERT INTO answer_options (question_id, text, position, is_correct)
			 VALUES ($1, $2, $3, $4)`,
			question.ID, text, i+1, i == draft.Answer,
		); err != nil {
			return Question{}, domain.Storage("insert answer option", err)
		}
	}
	return question, nil
}

func (s *PostgresStore) UpdateQuestion(ctx context.Context, actor domain.Identity, questionID int64, draft QuestionDraft) error {
	if err := actor.RequireAdmin("update question"); err != nil {
		return err
	}
	draft, err := validQuestionDraft(draft)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Storage("begin update question", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx,
		`UPDATE questions SET text = $2, explanation = $3 WHERE id = $1`,
		questionID, draft.Text, draft.Explanation,
	)
	if err != nil {
		return domain.Storage("update question", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("question", questionID)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM answer_options WHERE question_id = $1`, questionID,
	); err != nil {
		return domain.Storage("clear answer options", err)
	}
	for i, text := range draft.Options {
		if _, err := tx.Exec(ctx,
			`INSERT INTO answer_options (question_id, text, position, is_correct)
			 VALUES ($1, $2, $3, $4)`,
			questionID, text, i+1, i == draft.Answer,
		); err != nil {
			return domain.Storage("insert answer option", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Storage("commit update question", err)
	}
	return nil
}

func (s *PostgresStore) DeleteQuestion(ctx context.Context, actor domain.Identity, questionID int64) error {
	if err := actor.RequireAdmin("delete question"); err != nil {
		return err
	}
	return s.deleteByID(ctx, "questions", "question", questionID)
}

func (s *PostgresStore) requireRowTx(ctx context.Context, tx pgx.Tx, table, kind string, id int64) error {
	var exists bool
	err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table),
		id,
	).Scan(&exists)
	if err != nil {
		return domain.Storage("check "+kind, err)
	}
	if !exists {
		return domain.NotFound(kind, id)
	}
	return nil
}
