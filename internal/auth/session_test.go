package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kidsquiz/quiz-server/internal/auth"
	"github.com/kidsquiz/quiz-server/internal/domain"
)

func TestMemorySessions_RoundTrip(t *testing.T) {
	sessions := auth.NewMemorySessions()
	ctx := context.Background()
	id := domain.Identity{UserID: 2, Username: "alice"}

	token, err := sessions.Open(ctx, id, time.Hour)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	got, err := sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != id {
		t.Errorf("Resolve() = %+v, want %+v", got, id)
	}

	other, _ := sessions.Open(ctx, id, time.Hour)
	if other == token {
		t.Error("Open() returned a repeated token")
	}
}

func TestMemorySessions_UnknownAndClosed(t *testing.T) {
	sessions := auth.NewMemorySessions()
	ctx := context.Background()

	if _, err := sessions.Resolve(ctx, "no-such-token"); !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("Resolve(unknown) error = %v, want ErrNoSession", err)
	}

	token, _ := sessions.Open(ctx, domain.Identity{UserID: 2}, time.Hour)
	if err := sessions.Close(ctx, token); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := sessions.Resolve(ctx, token); !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("Resolve(closed) error = %v, want ErrNoSession", err)
	}

	// Closing again is a no-op.
	if err := sessions.Close(ctx, token); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemorySessions_Expiry(t *testing.T) {
	sessions := auth.NewMemorySessions()
	ctx := context.Background()

	token, err := sessions.Open(ctx, domain.Identity{UserID: 2}, -time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := sessions.Resolve(ctx, token); !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("Resolve(expired) error = %v, want ErrNoSession", err)
	}
}
