package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/parsyl/sqrl"

	"controlling_shade/internal/models"
)

// ErrUsernameTaken is returned by Create for a duplicate operator name.
var ErrUsernameTaken = errors.New("username already registered")

var userColumns = []string{"id", "username", "password_hash"}

// UserRepository stores the operators allowed to drive the shade.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

var _ Authorization = (*UserRepository)(nil)

// Create inserts an operator and returns its row id.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (int, error) {
	q, args, err := sqrl.Insert("users").
		Columns("username", "password_hash").
		Values(username, passwordHash).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build user insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	switch {
	case isUniqueViolation(err):
		return 0, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	case err != nil:
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) when no such operator exists.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	q, args, err := sqrl.Select(userColumns...).
		From("users").
		Where(sqrl.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var u models.User
	switch err := r.db.QueryRowContext(ctx, q, args...).Scan(&u.ID, &u.Username, &u.PasswordHash); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return &u, nil
}

// isUniqueViolation matches the sqlite constraint error by its message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
