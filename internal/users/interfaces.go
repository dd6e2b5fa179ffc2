package users

import (
	"context"
	"time"
)

// UserStore defines the interface for user storage operations
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, activeOnly bool) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) (*User, error)
	DeleteUser(ctx context.Context, userID int64) error
	RepairUserTimestamps(ctx context.Context, userID int64, now time.Time) (*User, error)
	RepairAllTimestamps(ctx context.Context, now time.Time) error
}

// UserService defines the interface for user lifecycle operations
type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, skip, limit int, activeOnly bool) ([]*User, int, error)
	UpdateUser(ctx context.Context, userID int64, req *UpdateUserRequest) (*User, error)
	SoftDeleteUser(ctx context.Context, userID int64) error
	HardDeleteUser(ctx context.Context, userID int64) error
}
