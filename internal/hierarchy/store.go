package hierarchy

import (
	"context"

	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/importer"
)

// Store is the content hierarchy contract. Mutations take the acting
// identity and fail with AuthorizationError for non-admins; reads are open to
// any authenticated caller. Listings are in creation order, with questions
// and options ordered by their explicit position.
type Store interface {
	CreateSubject(ctx context.Context, actor domain.Identity, name string) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id int64) (Subject, error)
	RenameSubject(ctx context.Context, actor domain.Identity, id int64, name string) error
	DeleteSubject(ctx context.Context, actor domain.Identity, id int64) error

	CreateTopic(ctx context.Context, actor domain.Identity, subjectID int64, name string) (Topic, error)
	ListTopics(ctx context.Context, subjectID int64) ([]Topic, error)
	GetTopic(ctx context.Context, id int64) (Topic, error)
	RenameTopic(ctx context.Context, actor domain.Identity, id int64, name string) error
	DeleteTopic(ctx context.Context, actor domain.Identity, id int64) error

	CreateClass(ctx context.Context, actor domain.Identity, topicID int64, name string) (Class, error)
	ListClasses(ctx context.Context, topicID int64) ([]Class, error)
	GetClass(ctx context.Context, id int64) (Class, error)
	RenameClass(ctx context.Context, actor domain.Identity, id int64, name string) error
	DeleteClass(ctx context.Context, actor domain.Identity, id int64) error

	CreateLevel(ctx context.Context, actor domain.Identity, classID int64, name string) (Level, error)
	ListLevels(ctx context.Context, classID int64) ([]Level, error)
	GetLevel(ctx context.Context, id int64) (Level, error)
	RenameLevel(ctx context.Context, actor domain.Identity, id int64, name string) error
	DeleteLevel(ctx context.Context, actor domain.Identity, id int64) error

	CreateQuiz(ctx context.Context, actor domain.Identity, levelID int64, draft QuizDraft) (Quiz, error)
	// ListQuizzes hides invisible quizzes from non-admin callers.
	ListQuizzes(ctx context.Context, actor domain.Identity, levelID int64) ([]Quiz, error)
	// GetQuiz returns NotFoundError to non-admins for hidden quizzes, so a
	// hidden quiz is indistinguishable from a missing one during browsing.
	GetQuiz(ctx context.Context, actor domain.Identity, id int64) (Quiz, error)
	// GetQuizContent loads the full question tree regardless of visibility.
	// It backs scoring and attempt history, which must keep working after a
	// quiz is hidden.
	GetQuizContent(ctx context.Context, id int64) (*QuizContent, error)
	UpdateQuiz(ctx context.Context, actor domain.Identity, id int64, draft QuizDraft) error
	SetQuizVisibility(ctx context.Context, actor domain.Identity, id int64, visible bool) error
	DeleteQuiz(ctx context.Context, actor domain.Identity, id int64) error

	AddQuestion(ctx context.Context, actor domain.Identity, quizID int64, draft QuestionDraft) (Question, error)
	UpdateQuestion(ctx context.Context, actor domain.Identity, questionID int64, draft QuestionDraft) error
	DeleteQuestion(ctx context.Context, actor domain.Identity, questionID int64) error

	// ImportDocument implements importer.Sink: it materializes a validated
	// document with merge-by-name reuse, all-or-nothing.
	ImportDocument(ctx context.Context, doc *importer.Document) (*importer.Summary, error)
}

func validName(name string) (string, error) {
	name = importer.NormalizeName(name)
	if name == "" {
		return "", domain.Invalid("name must not be empty")
	}
	return name, nil
}

func validQuizDraft(draft QuizDraft) (QuizDraft, error) {
	draft.Title = importer.NormalizeName(draft.Title)
	if draft.Title == "" {
		return draft, domain.Invalid("quiz title must not be empty")
	}
	if draft.TimeLimit <= 0 {
		return draft, domain.Invalid("time limit must be positive, got %d", draft.TimeLimit)
	}
	return draft, nil
}

func validQuestionDraft(draft QuestionDraft) (QuestionDraft, error) {
	var problems []string
	draft.Text = importer.NormalizeName(draft.Text)
	if draft.Text == "" {
		problems = append(problems, "question text must not be empty")
	}
	if len(draft.Options) < 2 {
		problems = append(problems, "question needs at least 2 options")
	}
	if draft.Answer < 0 || draft.Answer >= len(draft.Options) {
		problems = append(problems, "answer index out of range")
	}
	if len(problems) > 0 {
		return draft, &domain.ValidationError{Problems: problems}
	}
	return draft, nil
}
