package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kidsquiz/quiz-server/internal/auth"
	"github.com/kidsquiz/quiz-server/internal/domain"
)

// testCost keeps bcrypt cheap in tests.
const testCost = 4

func newGate() (*auth.Gate, *auth.MemoryUsers) {
	users := auth.NewMemoryUsers()
	return auth.NewGate(users, testCost, nil), users
}

func TestGate_RegisterAndLogin(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	u, err := gate.Register(ctx, " alice ", "secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q, want trimmed alice", u.Username)
	}
	if u.IsAdmin {
		t.Error("Register() produced an admin account")
	}
	if u.PasswordHash == "secret" {
		t.Error("password stored in clear")
	}

	got, err := gate.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Login() user id = %d, want %d", got.ID, u.ID)
	}
}

func TestGate_LoginBadCredentials(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	if _, err := gate.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Unknown user and wrong password fail identically.
	_, errUnknown := gate.Login(ctx, "bob", "secret")
	_, errWrong := gate.Login(ctx, "alice", "nope")
	if !errors.Is(errUnknown, domain.ErrBadCredentials) {
		t.Errorf("Login() unknown user error = %v, want ErrBadCredentials", errUnknown)
	}
	if !errors.Is(errWrong, domain.ErrBadCredentials) {
		t.Errorf("Login() wrong password error = %v, want ErrBadCredentials", errWrong)
	}
}

func TestGate_RegisterValidation(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "  ", "secret"},
		{"short password", "alice", "abc"},
		{"both bad", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := gate.Register(ctx, tt.username, tt.password); !domain.IsValidation(err) {
				t.Errorf("Register(%q, %q) error = %v, want ValidationError", tt.username, tt.password, err)
			}
		})
	}
}

func TestGate_RegisterDuplicate(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	if _, err := gate.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := gate.Register(ctx, "alice", "other"); !domain.IsConflict(err) {
		t.Fatalf("duplicate Register() error = %v, want ConflictError", err)
	}
}

func TestGate_LastAdminProtected(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	if err := gate.EnsureAdmin(ctx, "root", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	root, err := gate.Login(ctx, "root", "rootpass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	actor := root.Identity()

	if err := gate.SetAdmin(ctx, actor, root.ID, false); !domain.IsConflict(err) {
		t.Errorf("SetAdmin(demote last admin) error = %v, want ConflictError", err)
	}
	if err := gate.DeleteUser(ctx, actor, root.ID); !domain.IsConflict(err) {
		t.Errorf("DeleteUser(last admin) error = %v, want ConflictError", err)
	}

	// With a second admin both operations go through.
	alice, _ := gate.Register(ctx, "alice", "secret")
	if err := gate.SetAdmin(ctx, actor, alice.ID, true); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	if err := gate.DeleteUser(ctx, actor, root.ID); err != nil {
		t.Errorf("DeleteUser() with second admin error = %v", err)
	}
}

func TestGate_AdminOnlyManagement(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	alice, _ := gate.Register(ctx, "alice", "secret")
	bob, _ := gate.Register(ctx, "bob", "secret")
	actor := alice.Identity()

	if _, err := gate.Users(ctx, actor); !domain.IsAuthorization(err) {
		t.Errorf("Users() as student error = %v, want AuthorizationError", err)
	}
	if err := gate.SetAdmin(ctx, actor, bob.ID, true); !domain.IsAuthorization(err) {
		t.Errorf("SetAdmin() as student error = %v, want AuthorizationError", err)
	}
	if err := gate.ResetPassword(ctx, actor, bob.ID, "newpass"); !domain.IsAuthorization(err) {
		t.Errorf("ResetPassword() as student error = %v, want AuthorizationError", err)
	}
	if err := gate.DeleteUser(ctx, actor, bob.ID); !domain.IsAuthorization(err) {
		t.Errorf("DeleteUser() as student error = %v, want AuthorizationError", err)
	}
}

func TestGate_ResetPassword(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	if err := gate.EnsureAdmin(ctx, "root", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	root, _ := gate.Login(ctx, "root", "rootpass")
	alice, _ := gate.Register(ctx, "alice", "secret")

	if err := gate.ResetPassword(ctx, root.Identity(), alice.ID, "changed"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if _, err := gate.Login(ctx, "alice", "secret"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Error("old password still accepted after reset")
	}
	if _, err := gate.Login(ctx, "alice", "changed"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestGate_RenameUser(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	if err := gate.EnsureAdmin(ctx, "root", "rootpass"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	root, _ := gate.Login(ctx, "root", "rootpass")
	alice, _ := gate.Register(ctx, "alice", "secret")
	bob, _ := gate.Register(ctx, "bob", "secret")
	actor := root.Identity()

	if err := gate.RenameUser(ctx, actor, alice.ID, " alicia "); err != nil {
		t.Fatalf("RenameUser() error = %v", err)
	}
	if _, err := gate.Login(ctx, "alicia", "secret"); err != nil {
		t.Errorf("Login() with new username error = %v", err)
	}
	if _, err := gate.Login(ctx, "alice", "secret"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Error("old username still accepted after rename")
	}

	if err := gate.RenameUser(ctx, actor, bob.ID, "alicia"); !domain.IsConflict(err) {
		t.Errorf("RenameUser() to taken name error = %v, want ConflictError", err)
	}
	if err := gate.RenameUser(ctx, actor, bob.ID, "  "); !domain.IsValidation(err) {
		t.Errorf("RenameUser() to empty name error = %v, want ValidationError", err)
	}
	if err := gate.RenameUser(ctx, alice.Identity(), bob.ID, "robert"); !domain.IsAuthorization(err) {
		t.Errorf("RenameUser() as student error = %v, want AuthorizationError", err)
	}
}

func TestGate_EnsureAdminPromotesExisting(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	alice, err := gate.Register(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := gate.EnsureAdmin(ctx, "alice", "ignored"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}

	got, err := gate.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != alice.ID || !got.IsAdmin {
		t.Errorf("user after EnsureAdmin = %+v, want same account promoted", got)
	}
}

func TestGate_EnsureAdminIdempotent(t *testing.T) {
	gate, users := newGate()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := gate.EnsureAdmin(ctx, "root", "rootpass"); err != nil {
			t.Fatalf("EnsureAdmin() round %d error = %v", i+1, err)
		}
	}
	all, _ := users.List(ctx)
	if len(all) != 1 {
		t.Fatalf("users = %d, want 1", len(all))
	}
}
