package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

const dbTimeout = 5 * time.Second

// PostgresUsers is a PostgreSQL-backed UserStore implementation.
type PostgresUsers struct {
	pool *pgxpool.Pool
}

// NewPostgresUsers creates a PostgreSQL-backed user store.
func NewPostgresUsers(pool *pgxpool.Pool) (*PostgresUsers, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresUsers{pool: pool}, nil
}

func (s *PostgresUsers) Create(ctx context.Context, username, passwordHash string, isAdmin bool) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u := User{Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, is_admin)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		username, passwordHash, isAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, domain.Conflict("username %q already taken", username)
		}
		return User{}, domain.Storage("create user", err)
	}
	return u, nil
}

func (s *PostgresUsers) Get(ctx context.Context, id int64) (User, error) {
	return s.get(ctx, `SELECT id, username, password_hash, is_admin, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresUsers) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.get(ctx, `SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = $1`, username)
}

func (s *PostgresUsers) get(ctx context.Context, sql string, arg any) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := s.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, domain.NotFound("user", 0)
	}
	if err != nil {
		return User{}, domain.Storage("get user", err)
	}
	return u, nil
}

func (s *PostgresUsers) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, domain.Storage("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate users", err)
	}
	return out, nil
}

func (s *PostgresUsers) Rename(ctx context.Context, id int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `UPDATE users SET username = $2 WHERE id = $1`, id, username)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Conflict("username %q already taken", username)
		}
		return domain.Storage("rename user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user", id)
	}
	return nil
}

func (s *PostgresUsers) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return s.update(ctx, id, `UPDATE users SET is_admin = $2 WHERE id = $1`, isAdmin)
}

func (s *PostgresUsers) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.update(ctx, id, `UPDATE users SET password_hash = $2 WHERE id = $1`, passwordHash)
}

func (s *PostgresUsers) update(ctx context.Context, id int64, sql string, arg any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, sql, id, arg)
	if err != nil {
		return domain.Storage("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user", id)
	}
	return nil
}

func (s *PostgresUsers) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return domain.Storage("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user", id)
	}
	return nil
}

func (s *PostgresUsers) CountAdmins(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_admin`).Scan(&n); err != nil {
		return 0, domain.Storage("count admins", err)
	}
	return n, nil
}
