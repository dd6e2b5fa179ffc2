package users

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memoryStore is an in-memory UserStore used by the unit tests. It mirrors
// the Postgres store's observable behavior: typed not-found errors, typed
// conflicts on duplicate username/email, created_at DESC ordering.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[int64]*User)}
}

func copyUser(u *User) *User {
	cp := *u
	return &cp
}

func (s *memoryStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Username == user.Username {
			return nil, NewUserConflictError(ConflictFieldUsername)
		}
		if row.Email == user.Email {
			return nil, NewUserConflictError(ConflictFieldEmail)
		}
	}

	s.nextID++
	stored := copyUser(user)
	stored.ID = s.nextID
	s.rows[stored.ID] = stored
	return copyUser(stored), nil
}

func (s *memoryStore) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[userID]
	if !ok {
		return nil, NewUserNotFoundError(userID)
	}
	return copyUser(row), nil
}

func (s *memoryStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Username == username {
			return copyUser(row), nil
		}
	}
	return nil, &UserError{
		Type:    UserErrorTypeNotFound,
		Field:   "username",
		Message: fmt.Sprintf("user not found with username: %s", username),
	}
}

func (s *memoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Email == email {
			return copyUser(row), nil
		}
	}
	return nil, &UserError{
		Type:    UserErrorTypeNotFound,
		Field:   "email",
		Message: fmt.Sprintf("user not found with email: %s", email),
	}
}

func (s *memoryStore) ListUsers(ctx context.Context, activeOnly bool) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*User
	for _, row := range s.rows {
		if activeOnly && !row.Active {
			continue
		}
		result = append(result, copyUser(row))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memoryStore) UpdateUser(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[user.ID]; !ok {
		return nil, NewUserNotFoundError(user.ID)
	}

	for id, row := range s.rows {
		if id == user.ID {
			continue
		}
		if row.Username == user.Username {
			return nil, NewUserConflictError(ConflictFieldUsername)
		}
		if row.Email == user.Email {
			return nil, NewUserConflictError(ConflictFieldEmail)
		}
	}

	s.rows[user.ID] = copyUser(user)
	return copyUser(user), nil
}

func (s *memoryStore) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[userID]; !ok {
		return NewUserNotFoundError(userID)
	}
	delete(s.rows, userID)
	return nil
}

func (s *memoryStore) RepairUserTimestamps(ctx context.Context, userID int64, now time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[userID]
	if !ok {
		return nil, NewUserNotFoundError(userID)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	return copyUser(row), nil
}

func (s *memoryStore) RepairAllTimestamps(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
	}
	return nil
}

// seed inserts a row directly, bypassing the service, the way legacy data
// would appear in the table.
func (s *memoryStore) seed(user *User) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := copyUser(user)
	stored.ID = s.nextID
	s.rows[stored.ID] = stored
	return copyUser(stored)
}

// blindStore wraps memoryStore but reports every point lookup as a miss,
// simulating a create that races past the pre-checks and loses at the
// storage constraint.
type blindStore struct {
	*memoryStore
}

func (s *blindStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return nil, &UserError{
		Type:    UserErrorTypeNotFound,
		Field:   "username",
		Message: fmt.Sprintf("user not found with username: %s", username),
	}
}

func (s *blindStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return nil, &UserError{
		Type:    UserErrorTypeNotFound,
		Field:   "email",
		Message: fmt.Sprintf("user not found with email: %s", email),
	}
}

func validCreateRequest(username, email string) *CreateUserRequest {
	return &CreateUserRequest{
		Username:  username,
		Email:     email,
		FirstName: "John",
		LastName:  "Doe",
	}
}
