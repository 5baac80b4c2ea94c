package httpapi_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kidsquiz/quiz-server/internal/attempt"
)

func TestAPI_AttemptFeed(t *testing.T) {
	env := newEnv(t)
	quizID := env.buildQuiz(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsBase := "ws" + strings.TrimPrefix(env.srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsBase+"/api/feed/attempts?token="+env.adminToken, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	var started attempt.Attempt
	env.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", quizID), env.studentToken, nil, http.StatusCreated, &started)
	env.do(t, http.MethodPost, fmt.Sprintf("/api/attempts/%d/submit", started.ID), env.studentToken,
		map[string]any{"selections": []any{}}, http.StatusOK, nil)

	var got attempt.Attempt
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ID != started.ID {
		t.Errorf("feed attempt id = %d, want %d", got.ID, started.ID)
	}
	if got.Score != 0 || got.TotalQuestions != 2 {
		t.Errorf("feed attempt = %+v, want score 0 of 2 questions", got)
	}
}

func TestAPI_AttemptFeedAdminOnly(t *testing.T) {
	env := newEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsBase := "ws" + strings.TrimPrefix(env.srv.URL, "http")
	conn, resp, err := websocket.Dial(ctx, wsBase+"/api/feed/attempts?token="+env.studentToken, nil)
	if err == nil {
		conn.CloseNow()
		t.Fatal("Dial() as student succeeded, want rejection")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
