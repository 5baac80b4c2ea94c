package auth

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

const minPasswordLen = 4

// Gate is the account service: registration, login and admin user
// management. Password hashes use bcrypt at the configured cost.
type Gate struct {
	users UserStore
	cost  int
	log   *slog.Logger
}

// NewGate creates a Gate over the given user store. A cost of zero selects
// bcrypt.DefaultCost.
func NewGate(users UserStore, cost int, log *slog.Logger) *Gate {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gate{users: users, cost: cost, log: log}
}

// Register creates a regular account. The username is trimmed and
// NFC-normalized before the uniqueness check so visually identical names
// cannot coexist.
func (g *Gate) Register(ctx context.Context, username, password string) (User, error) {
	username = normalizeUsername(username)
	if err := validateCredentials(username, password); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return User{}, domain.Storage("hash password", err)
	}
	u, err := g.users.Create(ctx, username, string(hash), false)
	if err != nil {
		return User{}, err
	}
	g.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks the password against the stored hash. Unknown usernames and
// wrong passwords both come back as ErrBadCredentials.
func (g *Gate) Login(ctx context.Context, username, password string) (User, error) {
	u, err := g.users.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if domain.IsNotFound(err) {
			return User{}, domain.ErrBadCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, domain.ErrBadCredentials
	}
	return u, nil
}

// Users lists every account. Admin only.
func (g *Gate) Users(ctx context.Context, actor domain.Identity) ([]User, error) {
	if err := actor.RequireAdmin("list users"); err != nil {
		return nil, err
	}
	return g.users.List(ctx)
}

// SetAdmin grants or revokes the admin flag. Demoting the last remaining
// admin is refused so the system cannot lock itself out.
func (g *Gate) SetAdmin(ctx context.Context, actor domain.Identity, userID int64, isAdmin bool) error {
	if err := actor.RequireAdmin("change user role"); err != nil {
		return err
	}
	target, err := g.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsAdmin && !isAdmin {
		if err := g.requireAnotherAdmin(ctx, "demote"); err != nil {
			return err
		}
	}
	if err := g.users.SetAdmin(ctx, userID, isAdmin); err != nil {
		return err
	}
	g.log.Info("user role changed", "user_id", userID, "is_admin", isAdmin, "by", actor.UserID)
	return nil
}

// RenameUser changes an account's username. Admin only.
func (g *Gate) RenameUser(ctx context.Context, actor domain.Identity, userID int64, username string) error {
	if err := actor.RequireAdmin("rename user"); err != nil {
		return err
	}
	username = normalizeUsername(username)
	if username == "" {
		return domain.Invalid("username must not be empty")
	}
	if err := g.users.Rename(ctx, userID, username); err != nil {
		return err
	}
	g.log.Info("user renamed", "user_id", userID, "username", username, "by", actor.UserID)
	return nil
}

// ResetPassword sets a new password for any account. Admin only.
func (g *Gate) ResetPassword(ctx context.Context, actor domain.Identity, userID int64, password string) error {
	if err := actor.RequireAdmin("reset password"); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return domain.Invalid("password must be at least %d characters", minPasswordLen)
	}
	if _, err := g.users.Get(ctx, userID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return domain.Storage("hash password", err)
	}
	if err := g.users.SetPassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	g.log.Info("password reset", "user_id", userID, "by", actor.UserID)
	return nil
}

// DeleteUser removes an account and, through the schema cascade, its
// attempts. Deleting the last remaining admin is refused.
func (g *Gate) DeleteUser(ctx context.Context, actor domain.Identity, userID int64) error {
	if err := actor.RequireAdmin("delete user"); err != nil {
		return err
	}
	target, err := g.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsAdmin {
		if err := g.requireAnotherAdmin(ctx, "delete"); err != nil {
			return err
		}
	}
	if err := g.users.Delete(ctx, userID); err != nil {
		return err
	}
	g.log.Info("user deleted", "user_id", userID, "username", target.Username, "by", actor.UserID)
	return nil
}

// EnsureAdmin creates the bootstrap admin account on first start. If the
// username is already taken the existing account is promoted instead, so a
// redeploy never duplicates or breaks the configured admin.
func (g *Gate) EnsureAdmin(ctx context.Context, username, password string) error {
	username = normalizeUsername(username)
	if username == "" {
		return nil
	}

	existing, err := g.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return nil
		}
		if err := g.users.SetAdmin(ctx, existing.ID, true); err != nil {
			return err
		}
		g.log.Info("bootstrap account promoted to admin", "username", username)
		return nil
	case domain.IsNotFound(err):
	default:
		return err
	}

	if err := validateCredentials(username, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return domain.Storage("hash password", err)
	}
	u, err := g.users.Create(ctx, username, string(hash), true)
	if err != nil {
		if domain.IsConflict(err) {
			return nil
		}
		return err
	}
	g.log.Info("bootstrap admin created", "user_id", u.ID, "username", username)
	return nil
}

func (g *Gate) requireAnotherAdmin(ctx context.Context, action string) error {
	n, err := g.users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.Conflict("cannot %s the last admin", action)
	}
	return nil
}

func normalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}

func validateCredentials(username, password string) error {
	var problems []string
	if username == "" {
		problems = append(problems, "username must not be empty")
	}
	if len(password) < minPasswordLen {
		problems = append(problems, "password must be at least 4 characters")
	}
	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}
