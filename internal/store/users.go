// internal/store/users.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

const userColumns = `id, username, role, verified, COALESCE(email, ''), created_at`

// Users is the persisted actor registry. Password hashes never leave
// this package except through Credentials.
type Users struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewUsers(db *pgxpool.Pool, log *logger.Logger) *Users {
	return &Users{db: db, logger: log}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &role, &u.Verified, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Create registers an actor with a pre-hashed password.
func (s *Users) Create(ctx context.Context, username, passwordHash string, role models.Role, verified bool, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, verified, email)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING `+userColumns,
		username, passwordHash, string(role), verified, email)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *Users) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// Credentials returns the actor together with its password hash for the
// login path.
func (s *Users) Credentials(ctx context.Context, username string) (*models.User, string, error) {
	var hash string
	row := s.db.QueryRow(ctx, `
		SELECT id, username, role, verified, COALESCE(email, ''), created_at, password_hash
		FROM users WHERE username = $1`, username)

	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &role, &u.Verified, &u.Email, &u.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}
	u.Role = models.Role(role)
	return &u, hash, nil
}

// List returns every actor, newest first, without secrets.
func (s *Users) List(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

// ListVerified returns verified actors for membership pickers.
func (s *Users) ListVerified(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE verified ORDER BY username`)
}

func (s *Users) list(ctx context.Context, query string) ([]*models.User, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Users) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureSuperAdmin seeds the distinguished super admin on boot. The
// password applies only on first creation; an existing row is left
// untouched.
func (s *Users) EnsureSuperAdmin(ctx context.Context, passwordHash string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (username, password_hash, role, verified)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (username) DO NOTHING`,
		models.SuperAdminUsername, passwordHash, string(models.RoleSuperAdmin))
	if err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	return nil
}
