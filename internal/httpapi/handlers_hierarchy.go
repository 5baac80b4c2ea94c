package httpapi

import (
	"context"
	"net/http"

	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
)

type nameBody struct {
	Name string `json:"name"`
}

// The hierarchy store exposes the same handful of shapes at every tier, so
// the handlers share generic plumbing keyed on these signatures.
type (
	renameOp = func(context.Context, domain.Identity, int64, string) error
	deleteOp = func(context.Context, domain.Identity, int64) error
)

type (
	listOp[T any]   func(context.Context, int64) ([]T, error)
	createOp[T any] func(context.Context, domain.Identity, int64, string) (T, error)
	getOp[T any]    func(context.Context, int64) (T, error)
)

// --- Subjects ---

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.hierarchy.ListSubjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, subjects)
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	sub, err := s.hierarchy.CreateSubject(r.Context(), identity(r), body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, sub)
}

func (s *Server) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sub, err := s.hierarchy.GetSubject(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sub)
}

func (s *Server) handleRenameSubject(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, s.hierarchy.RenameSubject)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteSubject)
}

// --- Topics ---

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	listChildren(s, w, r, s.hierarchy.ListTopics)
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	createChild(s, w, r, s.hierarchy.CreateTopic)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	getOne(s, w, r, s.hierarchy.GetTopic)
}

func (s *Server) handleRenameTopic(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, s.hierarchy.RenameTopic)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteTopic)
}

// --- Classes ---

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	listChildren(s, w, r, s.hierarchy.ListClasses)
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	createChild(s, w, r, s.hierarchy.CreateClass)
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	getOne(s, w, r, s.hierarchy.GetClass)
}

func (s *Server) handleRenameClass(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, s.hierarchy.RenameClass)
}

func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteClass)
}

// --- Levels ---

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	listChildren(s, w, r, s.hierarchy.ListLevels)
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	createChild(s, w, r, s.hierarchy.CreateLevel)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	getOne(s, w, r, s.hierarchy.GetLevel)
}

func (s *Server) handleRenameLevel(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, s.hierarchy.RenameLevel)
}

func (s *Server) handleDeleteLevel(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteLevel)
}

// --- Quizzes ---

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	levelID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	quizzes, err := s.hierarchy.ListQuizzes(r.Context(), identity(r), levelID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, quizzes)
}

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	levelID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var draft hierarchy.QuizDraft
	if !s.decode(w, r, &draft) {
		return
	}
	quiz, err := s.hierarchy.CreateQuiz(r.Context(), identity(r), levelID, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, quiz)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	quiz, err := s.hierarchy.GetQuiz(r.Context(), identity(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, quiz)
}

func (s *Server) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var draft hierarchy.QuizDraft
	if !s.decode(w, r, &draft) {
		return
	}
	if err := s.hierarchy.UpdateQuiz(r.Context(), identity(r), id, draft); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteQuiz)
}

func (s *Server) handleQuizVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Visible bool `json:"visible"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.hierarchy.SetQuizVisibility(r.Context(), identity(r), id, body.Visible); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

// handleQuizQuestions returns the quiz with its questions and options. For
// non-admins the correct flags are stripped so taking a quiz never exposes
// the answer key.
func (s *Server) handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	actor := identity(r)
	// Visibility gate first: a hidden quiz reads as missing to students.
	if _, err := s.hierarchy.GetQuiz(r.Context(), actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	content, err := s.hierarchy.GetQuizContent(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !actor.IsAdmin {
		content = sanitizeContent(content)
	}
	s.respond(w, http.StatusOK, content)
}

// sanitizeContent clears the correct flags on a deep copy of the tree.
func sanitizeContent(content *hierarchy.QuizContent) *hierarchy.QuizContent {
	out := *content
	out.Questions = make([]hierarchy.QuestionContent, len(content.Questions))
	for i, q := range content.Questions {
		copied := q
		copied.Options = make([]hierarchy.AnswerOption, len(q.Options))
		for j, opt := range q.Options {
			opt.Correct = false
			copied.Options[j] = opt
		}
		out.Questions[i] = copied
	}
	return &out
}

// --- Questions ---

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var draft hierarchy.QuestionDraft
	if !s.decode(w, r, &draft) {
		return
	}
	q, err := s.hierarchy.AddQuestion(r.Context(), identity(r), quizID, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, q)
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var draft hierarchy.QuestionDraft
	if !s.decode(w, r, &draft) {
		return
	}
	if err := s.hierarchy.UpdateQuestion(r.Context(), identity(r), id, draft); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.hierarchy.DeleteQuestion)
}

// --- Shared handler shapes ---

func (s *Server) rename(w http.ResponseWriter, r *http.Request, op renameOp) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	if err := op(r.Context(), identity(r), id, body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, op deleteOp) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := op(r.Context(), identity(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func listChildren[T any](s *Server, w http.ResponseWriter, r *http.Request, op listOp[T]) {
	parentID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items, err := op(r.Context(), parentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, items)
}

func createChild[T any](s *Server, w http.ResponseWriter, r *http.Request, op createOp[T]) {
	parentID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body nameBody
	if !s.decode(w, r, &body) {
		return
	}
	item, err := op(r.Context(), identity(r), parentID, body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, item)
}

func getOne[T any](s *Server, w http.ResponseWriter, r *http.Request, op getOp[T]) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	item, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, item)
}
