package hierarchy_test

import (
	"context"
	"testing"

	"github.com/kidsquiz/quiz-server/internal/hierarchy"
	"github.com/kidsquiz/quiz-server/internal/importer"
)

func sampleDocument() *importer.Document {
	return &importer.Document{
		Subject: importer.SubjectDoc{
			Name: "Math",
			Topics: []importer.TopicDoc{{
				Name: "Algebra",
				Classes: []importer.ClassDoc{{
					Name: "Grade 5",
					Levels: []importer.LevelDoc{{
						Name: "Beginner",
						Quizzes: []importer.QuizDoc{{
							Title:     "Linear equations",
							TimeLimit: 10,
							Questions: []importer.QuestionDoc{
								{
									Question: "x + 1 = 2, x = ?",
									Options:  []string{"0", "1", "2"},
									Answer:   1,
								},
								{
									Question: "2x = 6, x = ?",
									Options:  []string{"2", "3"},
									Answer:   1,
								},
							},
						}},
					}},
				}},
			}},
		},
	}
}

func TestMemoryStore_ImportDocument(t *testing.T) {
	store := hierarchy.NewMemoryStore()
	ctx := context.Background()

	summary, err := store.ImportDocument(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("ImportDocument() error = %v", err)
	}

	want := map[string]int{"subject": 1, "topic": 1, "class": 1, "level": 1, "quiz": 1, "question": 2}
	for kind, n := range want {
		if summary.Created[kind] != n {
			t.Errorf("Created[%s] = %d, want %d", kind, summary.Created[kind], n)
		}
	}
	if len(summary.Reused) != 0 {
		t.Errorf("Reused = %v, want empty on first import", summary.Reused)
	}

	subjects, _ := store.ListSubjects(ctx)
	if len(subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(subjects))
	}
}

func TestMemoryStore_ImportDocument_MergesByName(t *testing.T) {
	store := hierarchy.NewMemoryStore()
	ctx := context.Background()

	if _, err := store.ImportDocument(ctx, sampleDocument()); err != nil {
		t.Fatalf("first ImportDocument() error = %v", err)
	}

	// Second import of the same tree: every container is reused, the quiz is
	// replaced in place and its questions rebuilt.
	doc := sampleDocument()
	doc.Subject.Topics[0].Classes[0].Levels[0].Quizzes[0].Description = "Updated"
	summary, err := store.ImportDocument(ctx, doc)
	if err != nil {
		t.Fatalf("second ImportDocument() error = %v", err)
	}

	for _, kind := range []string{"subject", "topic", "class", "level", "quiz"} {
		if summary.Reused[kind] != 1 {
			t.Errorf("Reused[%s] = %d, want 1", kind, summary.Reused[kind])
		}
	}
	if summary.Created["question"] != 2 {
		t.Errorf("Created[question] = %d, want 2 (questions are rebuilt)", summary.Created["question"])
	}

	subjects, _ := store.ListSubjects(ctx)
	topics, _ := store.ListTopics(ctx, subjects[0].ID)
	classes, _ := store.ListClasses(ctx, topics[0].ID)
	levels, _ := store.ListLevels(ctx, classes[0].ID)
	quizzes, _ := store.ListQuizzes(ctx, admin, levels[0].ID)
	if len(quizzes) != 1 {
		t.Fatalf("quizzes after re-import = %d, want 1", len(quizzes))
	}
	if quizzes[0].Description != "Updated" {
		t.Errorf("Description = %q, want Updated", quizzes[0].Description)
	}

	content, err := store.GetQuizContent(ctx, quizzes[0].ID)
	if err != nil {
		t.Fatalf("GetQuizContent() error = %v", err)
	}
	if len(content.Questions) != 2 {
		t.Errorf("questions after re-import = %d, want 2 (not duplicated)", len(content.Questions))
	}
}
