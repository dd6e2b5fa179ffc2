package users

import (
	"errors"
	"fmt"
)

// User error types
const (
	UserErrorTypeNotFound       = "not_found"
	UserErrorTypeConflict       = "conflict"
	UserErrorTypeInvalidRequest = "invalid_request"
)

// Conflict fields identify which uniqueness constraint fired
const (
	ConflictFieldUsername    = "username"
	ConflictFieldEmail       = "email"
	ConflictFieldUnspecified = "unspecified"
)

// UserError represents errors related to user operations
type UserError struct {
	Type    string
	Field   string
	UserID  int64
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("user error [%s]: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("user error [%s]: %s", e.Type, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// NewUserNotFoundError creates an error for when a user is not found
func NewUserNotFoundError(userID int64) *UserError {
	return &UserError{
		Type:    UserErrorTypeNotFound,
		UserID:  userID,
		Message: fmt.Sprintf("user %d not found", userID),
	}
}

// NewUserConflictError creates an error for a uniqueness violation on the
// given field (username, email or unspecified)
func NewUserConflictError(field string) *UserError {
	message := "user creation violates a uniqueness constraint"
	switch field {
	case ConflictFieldUsername:
		message = "username already exists"
	case ConflictFieldEmail:
		message = "email already exists"
	}
	return &UserError{
		Type:    UserErrorTypeConflict,
		Field:   field,
		Message: message,
	}
}

// NewUserValidationError creates an error for request validation failures
func NewUserValidationError(field, message string) *UserError {
	return &UserError{
		Type:    UserErrorTypeInvalidRequest,
		Field:   field,
		Message: message,
	}
}

// AsUserError unwraps err to a *UserError if there is one in the chain
func AsUserError(err error) (*UserError, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a user-not-found error
func IsNotFound(err error) bool {
	userErr, ok := AsUserError(err)
	return ok && userErr.Type == UserErrorTypeNotFound
}

// IsConflict reports whether err is a uniqueness conflict
func IsConflict(err error) bool {
	userErr, ok := AsUserError(err)
	return ok && userErr.Type == UserErrorTypeConflict
}
