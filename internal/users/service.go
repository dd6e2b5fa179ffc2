package users

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service implements the UserService interface. It owns all business rules
// for the user lifecycle: uniqueness pre-checks, timestamp repair,
// pagination, and conflict classification. Uniqueness under concurrent
// creation relies on the storage constraints; the pre-checks here only
// narrow the race window.
type Service struct {
	store  UserStore
	logger *zap.Logger
}

// NewService creates a new user service
func NewService(store UserStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// CreateUser creates a new user after best-effort uniqueness pre-checks.
// A concurrent create that wins the race still surfaces here as a typed
// conflict from the storage constraint.
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, NewUserConflictError(ConflictFieldUsername)
	} else if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, NewUserConflictError(ConflictFieldEmail)
	} else if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := s.store.CreateUser(ctx, req.ToUser())
	if err != nil {
		return nil, err
	}

	s.logger.Info("User created successfully",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))
	return user, nil
}

// GetUser retrieves a user by ID, repairing missing timestamps before
// returning the row
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	if userID <= 0 {
		return nil, NewUserValidationError("id", "user ID must be positive")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.repairTimestamps(ctx, user)
}

// GetUserByUsername retrieves a user by username
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, NewUserValidationError("username", "username is required")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.repairTimestamps(ctx, user)
}

// GetUserByEmail retrieves a user by email
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, NewUserValidationError("email", "email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.repairTimestamps(ctx, user)
}

// ListUsers returns one page of users plus the total count over the full
// filtered set. Rows are ordered by creation time, newest first; ties have
// unspecified order. Pagination is applied in memory after fetching the
// full filtered result so the total reflects the filter, not the page.
func (s *Service) ListUsers(ctx context.Context, skip, limit int, activeOnly bool) ([]*User, int, error) {
	if skip < 0 {
		return nil, 0, NewUserValidationError("skip", "skip must not be negative")
	}
	if limit <= 0 {
		return nil, 0, NewUserValidationError("limit", "limit must be positive")
	}

	// Legacy rows may predate the timestamp columns; backfill them before
	// ordering on created_at.
	if err := s.store.RepairAllTimestamps(ctx, time.Now().UTC()); err != nil {
		return nil, 0, err
	}

	all, err := s.store.ListUsers(ctx, activeOnly)
	if err != nil {
		return nil, 0, err
	}

	total := len(all)

	if skip >= total {
		return []*User{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}

	page := all[skip:end]
	s.logger.Info("Retrieved users",
		zap.Int("count", len(page)),
		zap.Int("total", total))
	return page, total, nil
}

// UpdateUser applies a partial update to a user. Fields absent from the
// request are left untouched; updated_at always advances.
func (s *Service) UpdateUser(ctx context.Context, userID int64, req *UpdateUserRequest) (*User, error) {
	if userID <= 0 {
		return nil, NewUserValidationError("id", "user ID must be positive")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if _, err := s.store.GetUserByUsername(ctx, *req.Username); err == nil {
			return nil, NewUserConflictError(ConflictFieldUsername)
		} else if !IsNotFound(err) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.store.GetUserByEmail(ctx, *req.Email); err == nil {
			return nil, NewUserConflictError(ConflictFieldEmail)
		} else if !IsNotFound(err) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	req.Apply(user)
	user.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User updated successfully",
		zap.Int64("user_id", updated.ID),
		zap.String("username", updated.Username))
	return updated, nil
}

// SoftDeleteUser marks a user inactive. The row remains in storage and is
// still retrievable by ID.
func (s *Service) SoftDeleteUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewUserValidationError("id", "user ID must be positive")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	user.Active = false
	user.UpdatedAt = time.Now().UTC()

	if _, err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("User deleted (soft)",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))
	return nil
}

// HardDeleteUser removes a user row permanently
func (s *Service) HardDeleteUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewUserValidationError("id", "user ID must be positive")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("User hard deleted",
		zap.Int64("user_id", userID),
		zap.String("username", user.Username))
	return nil
}

// repairTimestamps backfills missing timestamps on a freshly read user.
// Every code path that returns a user must never return one with missing
// timestamps; repair failure fails the read.
func (s *Service) repairTimestamps(ctx context.Context, user *User) (*User, error) {
	if !user.CreatedAt.IsZero() && !user.UpdatedAt.IsZero() {
		return user, nil
	}

	repaired, err := s.store.RepairUserTimestamps(ctx, user.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Repaired missing user timestamps", zap.Int64("user_id", user.ID))
	return repaired, nil
}
