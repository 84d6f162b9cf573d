package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLUserRepository is the sqlx implementation of the user store.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQLUserRepository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// CreateUser inserts a user and sets its ID. A taken username yields ErrDuplicate.
func (r *SQLUserRepository) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	query := `INSERT INTO users (username, email, first_name, last_name, password_hash, oidc_subject, created_at)
		VALUES (:username, :email, :first_name, :last_name, :password_hash, :oidc_subject, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *SQLUserRepository) getOne(ctx context.Context, what, query string, arg interface{}) (*User, error) {
	var user User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *SQLUserRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, fmt.Sprintf("with id %d", id), "SELECT * FROM users WHERE id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (r *SQLUserRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, fmt.Sprintf("%q", username), "SELECT * FROM users WHERE username = ?", username)
}

// GetUserByOIDCSubject retrieves the user linked to an external identity.
func (r *SQLUserRepository) GetUserByOIDCSubject(ctx context.Context, subject string) (*User, error) {
	return r.getOne(ctx, "with oidc subject", "SELECT * FROM users WHERE oidc_subject = ?", subject)
}

// UpdateProfile saves username, email and names.
func (r *SQLUserRepository) UpdateProfile(ctx context.Context, user *User) error {
	query := `UPDATE users SET username = :username, email = :email, first_name = :first_name, last_name = :last_name WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOne(res, fmt.Sprintf("user with id %d", user.ID))
}

// UpdatePassword stores a new password hash.
func (r *SQLUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOne(res, fmt.Sprintf("user with id %d", id))
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
