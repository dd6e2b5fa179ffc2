package users

import (
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"
)

// UserRole represents the role assigned to a user
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
	UserRoleGuest UserRole = "guest"
)

// IsValid checks if the user role is valid
func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleUser || r == UserRoleGuest
}

// User represents a human user in the system
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      UserRole  `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSchema represents the users table schema in PostgreSQL.
// Timestamps are nullzero so rows written before the timestamp columns
// existed surface as zero times and can be repaired on read.
type UserSchema struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	FirstName string    `bun:"first_name,notnull" json:"first_name"`
	LastName  string    `bun:"last_name,notnull" json:"last_name"`
	Role      UserRole  `bun:"role,notnull,default:'user'" json:"role"`
	Active    bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt time.Time `bun:"created_at,nullzero" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      *UserRole `json:"role,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

// Validate validates the create user request
func (r *CreateUserRequest) Validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateName("first_name", r.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", r.LastName); err != nil {
		return err
	}
	if r.Role != nil && !r.Role.IsValid() {
		return NewUserValidationError("role", "role must be one of admin, user, guest")
	}
	return nil
}

// ToUser converts the request to a User, applying defaults
func (r *CreateUserRequest) ToUser() *User {
	role := UserRoleUser
	if r.Role != nil {
		role = *r.Role
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	now := time.Now().UTC()
	return &User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      role,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateUserRequest represents a partial update to a user. Nil fields are
// left untouched.
type UpdateUserRequest struct {
	Username  *string   `json:"username,omitempty"`
	Email     *string   `json:"email,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Role      *UserRole `json:"role,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

// Validate validates the update user request
func (r *UpdateUserRequest) Validate() error {
	if r.Username != nil {
		if err := validateUsername(*r.Username); err != nil {
			return err
		}
	}
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.FirstName != nil {
		if err := validateName("first_name", *r.FirstName); err != nil {
			return err
		}
	}
	if r.LastName != nil {
		if err := validateName("last_name", *r.LastName); err != nil {
			return err
		}
	}
	if r.Role != nil && !r.Role.IsValid() {
		return NewUserValidationError("role", "role must be one of admin, user, guest")
	}
	return nil
}

// Apply copies the set fields onto the user
func (r *UpdateUserRequest) Apply(user *User) {
	if r.Username != nil {
		user.Username = *r.Username
	}
	if r.Email != nil {
		user.Email = *r.Email
	}
	if r.FirstName != nil {
		user.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		user.LastName = *r.LastName
	}
	if r.Role != nil {
		user.Role = *r.Role
	}
	if r.Active != nil {
		user.Active = *r.Active
	}
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
	Pages int     `json:"pages"`
}

func validateUsername(username string) error {
	// length limits count characters, not bytes
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return NewUserValidationError("username", "username must be between 3 and 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return NewUserValidationError("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewUserValidationError("email", "email must be a valid email address")
	}
	return nil
}

func validateName(field, value string) error {
	if n := utf8.RuneCountInString(value); n < 1 || n > 100 {
		return NewUserValidationError(field, field+" must be between 1 and 100 characters")
	}
	return nil
}

// Helper conversion functions

func UserSchemaToUser(schema UserSchema) *User {
	return &User{
		ID:        schema.ID,
		Username:  schema.Username,
		Email:     schema.Email,
		FirstName: schema.FirstName,
		LastName:  schema.LastName,
		Role:      schema.Role,
		Active:    schema.Active,
		CreatedAt: schema.CreatedAt,
		UpdatedAt: schema.UpdatedAt,
	}
}

func UserToUserSchema(user *User) UserSchema {
	return UserSchema{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
