// Package httpapi exposes the application over HTTP: JSON endpoints for
// accounts, the content hierarchy, quiz attempts and admin tooling, plus a
// websocket feed of finished attempts.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kidsquiz/quiz-server/internal/attempt"
	"github.com/kidsquiz/quiz-server/internal/auth"
	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
	"github.com/kidsquiz/quiz-server/internal/importer"
)

// Checker is a dependency that can report liveness for the readiness probe.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the server's collaborators.
type Config struct {
	Gate       *auth.Gate
	Sessions   auth.SessionStore
	SessionTTL time.Duration
	Hierarchy  hierarchy.Store
	Engine     *attempt.Engine
	Attempts   attempt.Store
	Importer   *importer.Importer
	Feed       *Feed
	// Checks are probed by GET /readyz, keyed by dependency name.
	Checks map[string]Checker
	Logger *slog.Logger
}

// Server handles the HTTP API.
type Server struct {
	gate       *auth.Gate
	sessions   auth.SessionStore
	sessionTTL time.Duration
	hierarchy  hierarchy.Store
	engine     *attempt.Engine
	attempts   attempt.Store
	importer   *importer.Importer
	feed       *Feed
	checks     map[string]Checker
	log        *slog.Logger
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Server{
		gate:       cfg.Gate,
		sessions:   cfg.Sessions,
		sessionTTL: cfg.SessionTTL,
		hierarchy:  cfg.Hierarchy,
		engine:     cfg.Engine,
		attempts:   cfg.Attempts,
		importer:   cfg.Importer,
		feed:       cfg.Feed,
		checks:     cfg.Checks,
		log:        cfg.Logger,
	}
}

// Routes builds the router. Everything under /api except register and login
// requires a bearer token.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	authed := func(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return s.requireSession(h)
	}

	mux.HandleFunc("POST /api/logout", authed(s.handleLogout))
	mux.HandleFunc("GET /api/me", authed(s.handleMe))

	mux.HandleFunc("GET /api/subjects", authed(s.handleListSubjects))
	mux.HandleFunc("POST /api/subjects", authed(s.handleCreateSubject))
	mux.HandleFunc("GET /api/subjects/{id}", authed(s.handleGetSubject))
	mux.HandleFunc("PATCH /api/subjects/{id}", authed(s.handleRenameSubject))
	mux.HandleFunc("DELETE /api/subjects/{id}", authed(s.handleDeleteSubject))
	mux.HandleFunc("GET /api/subjects/{id}/topics", authed(s.handleListTopics))
	mux.HandleFunc("POST /api/subjects/{id}/topics", authed(s.handleCreateTopic))

	mux.HandleFunc("GET /api/topics/{id}", authed(s.handleGetTopic))
	mux.HandleFunc("PATCH /api/topics/{id}", authed(s.handleRenameTopic))
	mux.HandleFunc("DELETE /api/topics/{id}", authed(s.handleDeleteTopic))
	mux.HandleFunc("GET /api/topics/{id}/classes", authed(s.handleListClasses))
	mux.HandleFunc("POST /api/topics/{id}/classes", authed(s.handleCreateClass))

	mux.HandleFunc("GET /api/classes/{id}", authed(s.handleGetClass))
	mux.HandleFunc("PATCH /api/classes/{id}", authed(s.handleRenameClass))
	mux.HandleFunc("DELETE /api/classes/{id}", authed(s.handleDeleteClass))
	mux.HandleFunc("GET /api/classes/{id}/levels", authed(s.handleListLevels))
	mux.HandleFunc("POST /api/classes/{id}/levels", authed(s.handleCreateLevel))

	mux.HandleFunc("GET /api/levels/{id}", authed(s.handleGetLevel))
	mux.HandleFunc("PATCH /api/levels/{id}", authed(s.handleRenameLevel))
	mux.HandleFunc("DELETE /api/levels/{id}", authed(s.handleDeleteLevel))
	mux.HandleFunc("GET /api/levels/{id}/quizzes", authed(s.handleListQuizzes))
	mux.HandleFunc("POST /api/levels/{id}/quizzes", authed(s.handleCreateQuiz))

	mux.HandleFunc("GET /api/quizzes/{id}", authed(s.handleGetQuiz))
	mux.HandleFunc("PUT /api/quizzes/{id}", authed(s.handleUpdateQuiz))
	mux.HandleFunc("DELETE /api/quizzes/{id}", authed(s.handleDeleteQuiz))
	mux.HandleFunc("PUT /api/quizzes/{id}/visibility", authed(s.handleQuizVisibility))
	mux.HandleFunc("GET /api/quizzes/{id}/questions", authed(s.handleQuizQuestions))
	mux.HandleFunc("POST /api/quizzes/{id}/questions", authed(s.handleAddQuestion))
	mux.HandleFunc("PUT /api/questions/{id}", authed(s.handleUpdateQuestion))
	mux.HandleFunc("DELETE /api/questions/{id}", authed(s.handleDeleteQuestion))

	mux.HandleFunc("POST /api/quizzes/{id}/attempts", authed(s.handleStartAttempt))
	mux.HandleFunc("GET /api/quizzes/{id}/attempts", authed(s.handleAttemptHistory))
	mux.HandleFunc("POST /api/attempts/{id}/submit", authed(s.handleSubmitAttempt))
	mux.HandleFunc("GET /api/attempts/{id}", authed(s.handleGetAttempt))

	mux.HandleFunc("POST /api/import", authed(s.handleImport))

	mux.HandleFunc("GET /api/users", authed(s.handleListUsers))
	mux.HandleFunc("PUT /api/users/{id}/role", authed(s.handleSetRole))
	mux.HandleFunc("PUT /api/users/{id}/username", authed(s.handleRenameUser))
	mux.HandleFunc("PUT /api/users/{id}/password", authed(s.handleResetPassword))
	mux.HandleFunc("DELETE /api/users/{id}", authed(s.handleDeleteUser))
	mux.HandleFunc("GET /api/stats", authed(s.handleStats))
	mux.HandleFunc("GET /api/export/attempts.xlsx", authed(s.handleExportAttempts))
	mux.HandleFunc("GET /api/feed/attempts", authed(s.handleAttemptFeed))

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for name, check := range s.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			s.log.Warn("readiness check failed", "dependency", name, "error", err)
			s.respond(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"failed": name,
			})
			return
		}
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}

// writeError translates the domain error taxonomy into HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	type errBody struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems,omitempty"`
	}

	var ve *domain.ValidationError
	switch {
	case domain.IsNotFound(err):
		s.respond(w, http.StatusNotFound, errBody{Error: err.Error()})
	case domain.IsConflict(err):
		s.respond(w, http.StatusConflict, errBody{Error: err.Error()})
	case errors.As(err, &ve):
		s.respond(w, http.StatusUnprocessableEntity, errBody{Error: "validation failed", Problems: ve.Problems})
	case domain.IsAuth(err):
		s.respond(w, http.StatusUnauthorized, errBody{Error: err.Error()})
	case domain.IsAuthorization(err):
		s.respond(w, http.StatusForbidden, errBody{Error: err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		s.respond(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, domain.Invalid("malformed JSON body: %v", err))
		return false
	}
	return true
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
