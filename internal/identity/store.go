package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminRole is the role that unlocks the admin console.
const AdminRole = "admin"

// User is an account that may sign in.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists accounts, role grants and refresh tokens in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates a store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindUserByEmail returns nil, nil when no account matches.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM admin_users WHERE email = $1
	`, normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser stores a new account with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := User{ID: uuid.NewString(), Email: normalizeEmail(email), PasswordHash: hash}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO admin_users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GrantRole gives userID role; granting twice is a no-op.
func (s *Store) GrantRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, role)
	return err
}

// HasRole reports whether userID holds role.
func (s *Store) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)
	`, userID, role).Scan(&ok)
	return ok, err
}

// SaveRefreshToken stores a refresh token id for rotation checks.
func (s *Store) SaveRefreshToken(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenID, userID, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked and reports whether it was still active.
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token_id = $1 AND revoked = FALSE AND expires_at > NOW()
	`, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
