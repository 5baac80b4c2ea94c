package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kidsquiz/quiz-server/internal/attempt"
	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
	"github.com/kidsquiz/quiz-server/internal/platform/database"
)

// startPostgres boots a disposable PostgreSQL container with the schema
// applied. Skipped in -short runs.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("quiz"),
		tcpostgres.WithUsername("quiz"),
		tcpostgres.WithPassword("quiz"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := database.New(ctx, url, 5, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestPostgresStore_Integration(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	store, err := hierarchy.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	sub, err := store.CreateSubject(ctx, admin, "Math")
	if err != nil {
		t.Fatalf("CreateSubject() error = %v", err)
	}
	if _, err := store.CreateSubject(ctx, admin, "Math"); !domain.IsConflict(err) {
		t.Fatalf("duplicate CreateSubject() error = %v, want ConflictError", err)
	}

	topic, err := store.CreateTopic(ctx, admin, sub.ID, "Algebra")
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	class, err := store.CreateClass(ctx, admin, topic.ID, "Grade 5")
	if err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}
	level, err := store.CreateLevel(ctx, admin, class.ID, "Beginner")
	if err != nil {
		t.Fatalf("CreateLevel() error = %v", err)
	}
	quiz, err := store.CreateQuiz(ctx, admin, level.ID, hierarchy.QuizDraft{Title: "Sums", TimeLimit: 10})
	if err != nil {
		t.Fatalf("CreateQuiz() error = %v", err)
	}

	q, err := store.AddQuestion(ctx, admin, quiz.ID, hierarchy.QuestionDraft{
		Text:    "1 + 1?",
		Options: []string{"1", "2", "3"},
		Answer:  1,
	})
	if err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}

	content, err := store.GetQuizContent(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("GetQuizContent() error = %v", err)
	}
	if len(content.Questions) != 1 || content.Questions[0].ID != q.ID {
		t.Fatalf("content = %+v, want the added question", content)
	}
	correct := 0
	for _, opt := range content.Questions[0].Options {
		if opt.Correct {
			correct++
			if opt.Text != "2" {
				t.Errorf("correct option = %q, want 2", opt.Text)
			}
		}
	}
	if correct != 1 {
		t.Errorf("correct options = %d, want exactly 1", correct)
	}

	// Re-import of the same tree reuses every container.
	summary, err := store.ImportDocument(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("ImportDocument() error = %v", err)
	}
	if summary.Reused["subject"] != 1 {
		t.Errorf("Reused[subject] = %d, want 1", summary.Reused["subject"])
	}
	if summary.Created["quiz"] != 1 {
		t.Errorf("Created[quiz] = %d, want 1", summary.Created["quiz"])
	}

	// Deleting the subject cascades through quizzes and questions.
	if err := store.DeleteSubject(ctx, admin, sub.ID); err != nil {
		t.Fatalf("DeleteSubject() error = %v", err)
	}
	if _, err := store.GetQuiz(ctx, admin, quiz.ID); !domain.IsNotFound(err) {
		t.Fatalf("GetQuiz() after cascade error = %v, want NotFoundError", err)
	}
}

func TestPostgresAttempts_Integration(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	store, err := hierarchy.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	attempts, err := attempt.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("attempt.NewPostgresStore() error = %v", err)
	}

	// The attempts table has a user FK, so insert a user row directly.
	var userID int64
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ('alice', 'x') RETURNING id`,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("inserting user: %v", err)
	}

	if _, err := store.ImportDocument(ctx, sampleDocument()); err != nil {
		t.Fatalf("ImportDocument() error = %v", err)
	}
	subjects, _ := store.ListSubjects(ctx)
	topics, _ := store.ListTopics(ctx, subjects[0].ID)
	classes, _ := store.ListClasses(ctx, topics[0].ID)
	levels, _ := store.ListLevels(ctx, classes[0].ID)
	quizzes, _ := store.ListQuizzes(ctx, admin, levels[0].ID)
	if len(quizzes) != 1 {
		t.Fatalf("quizzes = %d, want 1", len(quizzes))
	}

	engine := attempt.NewEngine(attempt.EngineConfig{Quizzes: store, Attempts: attempts})
	actor := domain.Identity{UserID: userID, Username: "alice"}

	a, err := engine.Start(ctx, actor, quizzes[0].ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	result, err := engine.Submit(ctx, actor, a.ID, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Attempt.Score != 0 || result.Attempt.TotalQuestions != 2 {
		t.Errorf("result = %+v, want score 0 of 2", result.Attempt)
	}

	stored, err := attempts.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Selections) != 2 {
		t.Errorf("stored selections = %d, want one per question", len(stored.Selections))
	}
	if _, err := engine.Submit(ctx, actor, a.ID, nil); !domain.IsConflict(err) {
		t.Errorf("second Submit() error = %v, want ConflictError", err)
	}

	stats, err := attempts.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalUsers != 1 || stats.TotalAttempts != 1 {
		t.Errorf("stats = %+v, want 1 user and 1 attempt", stats)
	}
	if len(stats.ActiveUsers) != 1 || stats.ActiveUsers[0].Username != "alice" {
		t.Errorf("ActiveUsers = %+v, want alice", stats.ActiveUsers)
	}
}
