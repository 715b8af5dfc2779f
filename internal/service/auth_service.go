package service

import (
	"context"
	"errors"
	"log/slog"

	"riyalmind/internal/auth"
	"riyalmind/internal/core"
)

// AuthService pairs password authentication with session token issuance and
// maps auth failures onto the shared error kinds.
type AuthService struct {
	authenticator *auth.PasswordAuthenticator
	tokens        *auth.JWTManager
}

func NewAuthService(authenticator *auth.PasswordAuthenticator, tokens *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, tokens: tokens}
}

// Register creates an account and returns the user with a fresh session
// token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*core.User, string, error) {
	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrEmailExists):
			return nil, "", core.InvalidInputf("%v", err)
		default:
			return nil, "", core.PersistenceError(err)
		}
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", core.PersistenceError(err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login verifies credentials and returns the user with a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*core.User, string, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, "", core.Unauthorizedf("invalid email or password")
		}
		return nil, "", core.PersistenceError(err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", core.PersistenceError(err)
	}
	return user, token, nil
}

// ValidateToken resolves a bearer token into session claims.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, core.Unauthorizedf("invalid or expired session")
	}
	return claims, nil
}
