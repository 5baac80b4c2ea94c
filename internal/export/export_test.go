package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kidsquiz/quiz-server/internal/export"
)

func TestAttempts(t *testing.T) {
	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []export.Row{
		{
			AttemptID:   1,
			Username:    "alice",
			QuizTitle:   "Linear equations",
			StartedAt:   started,
			CompletedAt: started.Add(3 * time.Minute),
			Score:       67,
			Correct:     2,
			Total:       3,
		},
		{
			AttemptID:   2,
			Username:    "bob",
			QuizTitle:   "Forces",
			StartedAt:   started,
			CompletedAt: started.Add(90 * time.Second),
			Score:       100,
			Correct:     2,
			Total:       2,
		},
	}

	data, err := export.Attempts(rows)
	if err != nil {
		t.Fatalf("Attempts() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows("Attempts")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(got))
	}
	if got[0][0] != "Attempt" || got[0][1] != "User" {
		t.Errorf("header = %v, want Attempt, User, ...", got[0])
	}
	if got[1][1] != "alice" || got[1][2] != "Linear equations" {
		t.Errorf("row 1 = %v, want alice / Linear equations", got[1])
	}
	if got[2][6] != "100" {
		t.Errorf("row 2 score = %q, want 100", got[2][6])
	}
	if got[1][5] != "180" {
		t.Errorf("row 1 duration = %q, want 180", got[1][5])
	}
}

func TestAttempts_Empty(t *testing.T) {
	data, err := export.Attempts(nil)
	if err != nil {
		t.Fatalf("Attempts(nil) error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows("Attempts")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("rows = %d, want header only", len(got))
	}
}
