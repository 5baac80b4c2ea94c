package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kidsquiz/quiz-server/internal/attempt"
	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/export"
)

// maxImportSize caps the bulk import body at 8 MiB.
const maxImportSize = 8 << 20

func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.engine.Start(r.Context(), identity(r), quizID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, a)
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Selections []attempt.Selection `json:"selections"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	result, err := s.engine.Submit(r.Context(), identity(r), attemptID, body.Selections)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.engine.Review(r.Context(), identity(r), attemptID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleAttemptHistory(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var forUser int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		forUser, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, domain.Invalid("invalid user_id %q", raw))
			return
		}
	}
	attempts, err := s.engine.History(r.Context(), identity(r), quizID, forUser)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, attempts)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		s.writeError(w, domain.Invalid("reading import body: %v", err))
		return
	}
	summary, err := s.importer.Import(r.Context(), identity(r), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if err := identity(r).RequireAdmin("view statistics"); err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.attempts.Statistics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, stats)
}

// handleExportAttempts streams every finished attempt as an Excel workbook.
func (s *Server) handleExportAttempts(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	if err := actor.RequireAdmin("export attempts"); err != nil {
		s.writeError(w, err)
		return
	}

	attempts, err := s.attempts.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	usernames := map[int64]string{}
	if users, err := s.gate.Users(r.Context(), actor); err == nil {
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}
	titles := map[int64]string{}

	rows := make([]export.Row, 0, len(attempts))
	for _, a := range attempts {
		if a.CompletedAt == nil {
			continue
		}
		title, ok := titles[a.QuizID]
		if !ok {
			if quiz, err := s.hierarchy.GetQuiz(r.Context(), actor, a.QuizID); err == nil {
				title = quiz.Title
			}
			titles[a.QuizID] = title
		}
		rows = append(rows, export.Row{
			AttemptID:   a.ID,
			Username:    usernames[a.UserID],
			QuizTitle:   title,
			StartedAt:   a.StartedAt,
			CompletedAt: *a.CompletedAt,
			Score:       a.Score,
			Correct:     a.CorrectCount,
			Total:       a.TotalQuestions,
		})
	}

	workbook, err := export.Attempts(rows)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="attempts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(workbook); err != nil {
		s.log.Error("writing export", "error", err)
	}
}
