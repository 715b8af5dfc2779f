package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"riyalmind/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// UserStore is the slice of persistence the authenticator needs.
// GetUserByEmail returns (nil, nil) when no such user exists.
type UserStore interface {
	CreateUser(ctx context.Context, user *core.User) error
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
}

// PasswordAuthenticator registers and verifies users with bcrypt hashes.
type PasswordAuthenticator struct {
	store UserStore
}

func NewPasswordAuthenticator(store UserStore) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store}
}

// Register creates an account with a hashed password. The email must not be
// taken and the password must pass the minimum length check.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, password string) (*core.User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies email and password. Unknown email and wrong password
// are indistinguishable to the caller.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*core.User, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
