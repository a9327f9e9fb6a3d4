package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deskflow.io/internal/ids"
)

// Service provides registration, login and directory lookups on top of a
// UserStore. Token signing itself lives in token.go; the service decides
// when a token may be issued.
type Service struct {
	store    UserStore
	now      func() time.Time
	tokenTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithTokenTTL overrides the credential lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store UserStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    store,
		now:      time.Now,
		tokenTTL: TokenTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register creates a new user. Role defaults to employee when empty; the
// password is hashed before it reaches the store.
func (s *Service) Register(ctx context.Context, username, password, email, fullName, role string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	fullName = strings.TrimSpace(fullName)
	if username == "" || password == "" || email == "" || fullName == "" {
		return nil, fmt.Errorf("%w: username, password, email and full name are required", ErrInvalidInput)
	}
	role = NormalizeRole(role)
	if role == "" {
		role = RoleEmployee
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues a signed token. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrUnauthorized
	}
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrUnauthorized
	}
	token, err := GenerateToken(user, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	user.PasswordHash = ""
	return token, user, nil
}

// Find returns a user profile without the password hash.
func (s *Service) Find(ctx context.Context, id string) (*User, error) {
	user, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// ITStaff lists assignment candidates for the team-lead assignment dropdown.
func (s *Service) ITStaff(ctx context.Context) ([]*User, error) {
	return s.store.ListByRole(ctx, RoleITStaff)
}
