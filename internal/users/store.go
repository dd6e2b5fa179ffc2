package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// PostgresStore implements UserStore using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL user store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// classifyUniqueViolation maps a duplicate-key error from Postgres to a
// typed conflict naming the constraint that fired. Returns nil when the
// error is not a uniqueness violation.
func classifyUniqueViolation(err error) *UserError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value violates unique constraint") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users_username_key"), strings.Contains(msg, "username"):
		return NewUserConflictError(ConflictFieldUsername)
	case strings.Contains(msg, "users_email_key"), strings.Contains(msg, "email"):
		return NewUserConflictError(ConflictFieldEmail)
	default:
		return NewUserConflictError(ConflictFieldUnspecified)
	}
}

// CreateUser inserts a new user and returns the persisted row. The insert
// runs in its own transaction; a duplicate-key failure rolls back and
// surfaces as a typed conflict.
func (s *PostgresStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	userSchema := UserToUserSchema(user)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&userSchema).
			Returning("*").
			Exec(ctx)
		return err
	})
	if err != nil {
		if conflict := classifyUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return UserSchemaToUser(userSchema), nil
}

// GetUserByID retrieves a user by ID
func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	var userSchema UserSchema
	err := s.db.NewSelect().
		Model(&userSchema).
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUserNotFoundError(userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return UserSchemaToUser(userSchema), nil
}

// GetUserByUsername retrieves a user by username
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var userSchema UserSchema
	err := s.db.NewSelect().
		Model(&userSchema).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &UserError{
				Type:    UserErrorTypeNotFound,
				Field:   "username",
				Message: fmt.Sprintf("user not found with username: %s", username),
			}
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return UserSchemaToUser(userSchema), nil
}

// GetUserByEmail retrieves a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var userSchema UserSchema
	err := s.db.NewSelect().
		Model(&userSchema).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &UserError{
				Type:    UserErrorTypeNotFound,
				Field:   "email",
				Message: fmt.Sprintf("user not found with email: %s", email),
			}
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return UserSchemaToUser(userSchema), nil
}

// ListUsers retrieves all users ordered by creation time, newest first,
// optionally filtered to active rows
func (s *PostgresStore) ListUsers(ctx context.Context, activeOnly bool) ([]*User, error) {
	query := s.db.NewSelect().Model((*UserSchema)(nil))

	if activeOnly {
		query = query.Where("active = ?", true)
	}

	query = query.Order("created_at DESC")

	var schemas []UserSchema
	if err := query.Scan(ctx, &schemas); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]*User, len(schemas))
	for i, schema := range schemas {
		result[i] = UserSchemaToUser(schema)
	}
	return result, nil
}

// UpdateUser writes all fields of an existing user. A duplicate-key failure
// rolls back and surfaces as a typed conflict.
func (s *PostgresStore) UpdateUser(ctx context.Context, user *User) (*User, error) {
	userSchema := UserToUserSchema(user)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model(&userSchema).
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return NewUserNotFoundError(user.ID)
		}
		return nil
	})
	if err != nil {
		if userErr, ok := AsUserError(err); ok {
			return nil, userErr
		}
		if conflict := classifyUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return UserSchemaToUser(userSchema), nil
}

// DeleteUser removes a user row permanently
func (s *PostgresStore) DeleteUser(ctx context.Context, userID int64) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			Model((*UserSchema)(nil)).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return NewUserNotFoundError(userID)
		}
		return nil
	})
	if err != nil {
		if userErr, ok := AsUserError(err); ok {
			return userErr
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// RepairUserTimestamps backfills NULL created_at/updated_at columns on one
// row and returns the refreshed user
func (s *PostgresStore) RepairUserTimestamps(ctx context.Context, userID int64, now time.Time) (*User, error) {
	var userSchema UserSchema

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*UserSchema)(nil)).
			Where("id = ?", userID).
			Where("created_at IS NULL").
			Set("created_at = ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*UserSchema)(nil)).
			Where("id = ?", userID).
			Where("updated_at IS NULL").
			Set("updated_at = ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}

		return tx.NewSelect().
			Model(&userSchema).
			Where("id = ?", userID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUserNotFoundError(userID)
		}
		return nil, fmt.Errorf("failed to repair user timestamps: %w", err)
	}

	return UserSchemaToUser(userSchema), nil
}

// RepairAllTimestamps backfills NULL created_at/updated_at columns across
// the whole table in one committed pass
func (s *PostgresStore) RepairAllTimestamps(ctx context.Context, now time.Time) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*UserSchema)(nil)).
			Where("created_at IS NULL").
			Set("created_at = ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*UserSchema)(nil)).
			Where("updated_at IS NULL").
			Set("updated_at = ?", now).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to repair user timestamps: %w", err)
	}
	return nil
}
