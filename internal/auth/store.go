package auth

import "context"

// UserStore describes persistence operations for the user directory.
type UserStore interface {
	// Create persists a new user. Returns ErrDuplicate when the username or
	// email is already taken.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	// FindByUsername returns the full record including the password hash.
	FindByUsername(ctx context.Context, username string) (*User, error)
	// ListByRole returns identity fields only; PasswordHash is left empty.
	ListByRole(ctx context.Context, role string) ([]*User, error)
}
