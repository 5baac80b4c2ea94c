package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kidsquiz/quiz-server/internal/attempt"
	"github.com/kidsquiz/quiz-server/internal/auth"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
	"github.com/kidsquiz/quiz-server/internal/httpapi"
	"github.com/kidsquiz/quiz-server/internal/importer"
)

type testEnv struct {
	srv          *httptest.Server
	adminToken   string
	studentToken string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	users := auth.NewMemoryUsers()
	gate := auth.NewGate(users, 4, nil)
	sessions := auth.NewMemorySessions()
	quizzes := hierarchy.NewMemoryStore()
	attempts := attempt.NewMemoryStore()
	feed := httpapi.NewFeed(nil)
	engine := attempt.NewEngine(attempt.EngineConfig{
		Quizzes:  quizzes,
		Attempts: attempts,
		Notify:   feed.Publish,
	})

	api := httpapi.New(httpapi.Config{
		Gate:       gate,
		Sessions:   sessions,
		SessionTTL: time.Hour,
		Hierarchy:  quizzes,
		Engine:     engine,
		Attempts:   attempts,
		Importer:   importer.New(quizzes),
		Feed:       feed,
	})

	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)
	env := &testEnv{srv: srv}

	if err := gate.EnsureAdmin(t.Context(), "root", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	env.adminToken = env.login(t, "root", "rootpass")

	env.do(t, http.MethodPost, "/api/register", "", map[string]any{
		"username": "alice", "password": "secret",
	}, http.StatusCreated, nil)
	env.studentToken = env.login(t, "alice", "secret")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	e.do(t, http.MethodPost, "/api/login", "", map[string]any{
		"username": username, "password": password,
	}, http.StatusOK, &out)
	if out.Token == "" {
		t.Fatal("login returned empty token")
	}
	return out.Token
}

// do performs a JSON request and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var raw bytes.Buffer
		raw.ReadFrom(resp.Body)
		t.Fatalf("%s %s status = %d, want %d (body %s)", method, path, resp.StatusCode, wantStatus, raw.String())
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
}

// buildQuiz creates a full tree over the API and returns the quiz id.
func (e *testEnv) buildQuiz(t *testing.T) int64 {
	t.Helper()
	var node struct {
		ID int64 `json:"id"`
	}
	e.do(t, http.MethodPost, "/api/subjects", e.adminToken, map[string]any{"name": "Math"}, http.StatusCreated, &node)
	subjectID := node.ID
	e.do(t, http.MethodPost, fmt.Sprintf("/api/subjects/%d/topics", subjectID), e.adminToken, map[string]any{"name": "Algebra"}, http.StatusCreated, &node)
	e.do(t, http.MethodPost, fmt.Sprintf("/api/topics/%d/classes", node.ID), e.adminToken, map[string]any{"name": "Grade 5"}, http.StatusCreated, &node)
	e.do(t, http.MethodPost, fmt.Sprintf("/api/classes/%d/levels", node.ID), e.adminToken, map[string]any{"name": "Beginner"}, http.StatusCreated, &node)
	e.do(t, http.MethodPost, fmt.Sprintf("/api/levels/%d/quizzes", node.ID), e.adminToken, map[string]any{
		"title": "Sums", "time_limit": 10,
	}, http.StatusCreated, &node)
	quizID := node.ID

	questions := []map[string]any{
		{"text": "1 + 1?", "options": []string{"1", "2"}, "answer": 1},
		{"text": "2 + 2?", "options": []string{"4", "5"}, "answer": 0},
	}
	for _, q := range questions {
		e.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/questions", quizID), e.adminToken, q, http.StatusCreated, nil)
	}
	return quizID
}

func TestAPI_AuthRequired(t *testing.T) {
	env := newEnv(t)

	env.do(t, http.MethodGet, "/api/subjects", "", nil, http.StatusUnauthorized, nil)
	env.do(t, http.MethodGet, "/api/subjects", "bogus-token", nil, http.StatusUnauthorized, nil)
	env.do(t, http.MethodGet, "/api/subjects", env.studentToken, nil, http.StatusOK, nil)
}

func TestAPI_AdminGates(t *testing.T) {
	env := newEnv(t)

	env.do(t, http.MethodPost, "/api/subjects", env.studentToken, map[string]any{"name": "Nope"}, http.StatusForbidden, nil)
	env.do(t, http.MethodGet, "/api/users", env.studentToken, nil, http.StatusForbidden, nil)
	env.do(t, http.MethodGet, "/api/stats", env.studentToken, nil, http.StatusForbidden, nil)
	env.do(t, http.MethodGet, "/api/stats", env.adminToken, nil, http.StatusOK, nil)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	env := newEnv(t)

	// 404 for missing, 409 for duplicates, 422 for bad input.
	env.do(t, http.MethodGet, "/api/subjects/999", env.studentToken, nil, http.StatusNotFound, nil)
	env.do(t, http.MethodPost, "/api/subjects", env.adminToken, map[string]any{"name": "Math"}, http.StatusCreated, nil)
	env.do(t, http.MethodPost, "/api/subjects", env.adminToken, map[string]any{"name": "Math"}, http.StatusConflict, nil)
	env.do(t, http.MethodPost, "/api/subjects", env.adminToken, map[string]any{"name": "  "}, http.StatusUnprocessableEntity, nil)
	env.do(t, http.MethodPost, "/api/login", "", map[string]any{"username": "root", "password": "wrong"}, http.StatusUnauthorized, nil)
}

func TestAPI_QuizFlow(t *testing.T) {
	env := newEnv(t)
	quizID := env.buildQuiz(t)

	// The student fetches questions; the answer key must not leak.
	var content struct {
		Questions []struct {
			ID      int64 `json:"id"`
			Options []struct {
				ID      int64 `json:"id"`
				Text    string `json:"text"`
				Correct bool  `json:"correct"`
			} `json:"options"`
		} `json:"questions"`
	}
	env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/questions", quizID), env.studentToken, nil, http.StatusOK, &content)
	if len(content.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(content.Questions))
	}
	for _, q := range content.Questions {
		for _, opt := range q.Options {
			if opt.Correct {
				t.Fatal("answer key leaked to student")
			}
		}
	}

	var started attempt.Attempt
	env.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", quizID), env.studentToken, nil, http.StatusCreated, &started)

	// Answer the first question right ("2"), the second wrong.
	var selections []map[string]any
	for i, q := range content.Questions {
		var pick int64
		for _, opt := range q.Options {
			if (i == 0 && opt.Text == "2") || (i == 1 && opt.Text == "5") {
				pick = opt.ID
			}
		}
		selections = append(selections, map[string]any{"question_id": q.ID, "selected_option_id": pick})
	}

	var result attempt.Result
	env.do(t, http.MethodPost, fmt.Sprintf("/api/attempts/%d/submit", started.ID), env.studentToken,
		map[string]any{"selections": selections}, http.StatusOK, &result)
	if result.Attempt.Score != 50 || result.Attempt.CorrectCount != 1 {
		t.Errorf("score = %d (%d correct), want 50 (1 correct)", result.Attempt.Score, result.Attempt.CorrectCount)
	}
	if len(result.Breakdown) != 2 {
		t.Errorf("breakdown = %d rows, want 2", len(result.Breakdown))
	}

	// Resubmission conflicts; review and history work.
	env.do(t, http.MethodPost, fmt.Sprintf("/api/attempts/%d/submit", started.ID), env.studentToken,
		map[string]any{"selections": selections}, http.StatusConflict, nil)
	env.do(t, http.MethodGet, fmt.Sprintf("/api/attempts/%d", started.ID), env.studentToken, nil, http.StatusOK, nil)

	var history []attempt.Attempt
	env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/attempts", quizID), env.studentToken, nil, http.StatusOK, &history)
	if len(history) != 1 {
		t.Errorf("history = %d attempts, want 1", len(history))
	}

	// Admin export includes the finished attempt.
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/export/attempts.xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("export Content-Type = %q, want xlsx", ct)
	}
}

func TestAPI_VisibilityToggle(t *testing.T) {
	env := newEnv(t)
	quizID := env.buildQuiz(t)

	env.do(t, http.MethodPut, fmt.Sprintf("/api/quizzes/%d/visibility", quizID), env.adminToken,
		map[string]any{"visible": false}, http.StatusNoContent, nil)

	env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quizID), env.studentToken, nil, http.StatusNotFound, nil)
	env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quizID), env.adminToken, nil, http.StatusOK, nil)
}

func TestAPI_Import(t *testing.T) {
	env := newEnv(t)

	doc := `{"subject": {"name": "Science", "topics": [{"name": "Physics", "classes": [{"name": "Grade 6",
		"levels": [{"name": "Beginner", "quizzes": [{"title": "Forces", "time_limit": 15,
		"questions": [{"question": "Unit of force?", "options": ["Newton", "Joule"], "answer": 0}]}]}]}]}]}}`

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/import", strings.NewReader(doc))
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d, want 200", resp.StatusCode)
	}
	var summary importer.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Created["subject"] != 1 || summary.Created["question"] != 1 {
		t.Errorf("summary = %+v, want 1 subject and 1 question created", summary)
	}

	// Students cannot import.
	req2, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/import", strings.NewReader(doc))
	req2.Header.Set("Authorization", "Bearer "+env.studentToken)
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Errorf("student import status = %d, want 403", resp2.StatusCode)
	}
}

func TestAPI_Logout(t *testing.T) {
	env := newEnv(t)

	env.do(t, http.MethodPost, "/api/logout", env.studentToken, nil, http.StatusNoContent, nil)
	env.do(t, http.MethodGet, "/api/me", env.studentToken, nil, http.StatusUnauthorized, nil)
}

func TestAPI_Health(t *testing.T) {
	env := newEnv(t)

	env.do(t, http.MethodGet, "/healthz", "", nil, http.StatusOK, nil)
	env.do(t, http.MethodGet, "/readyz", "", nil, http.StatusOK, nil)
}
