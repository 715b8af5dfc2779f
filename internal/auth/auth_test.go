package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"riyalmind/internal/core"
)

type fakeUserStore struct {
	byEmail map[string]*core.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*core.User)}
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = "u-" + user.Email
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	return s.byEmail[email], nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newFakeUserStore()
	a := NewPasswordAuthenticator(store)
	ctx := context.Background()

	user, err := a.Register(ctx, "sara@example.com", "Sara", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Fatal("password stored in plain text")
	}

	if _, err := a.Authenticate(ctx, "sara@example.com", "correct horse battery"); err != nil {
		t.Errorf("Authenticate with right password: %v", err)
	}
	if _, err := a.Authenticate(ctx, "sara@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterRejectsWeakAndDuplicate(t *testing.T) {
	store := newFakeUserStore()
	a := NewPasswordAuthenticator(store)
	ctx := context.Background()

	if _, err := a.Register(ctx, "a@example.com", "A", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password = %v, want ErrWeakPassword", err)
	}

	if _, err := a.Register(ctx, "a@example.com", "A", "long enough password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := a.Register(ctx, "a@example.com", "A again", "another long password"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email = %v, want ErrEmailExists", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long", time.Hour)
	user := &core.User{ID: "u1", Email: "u1@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTRejectsTamperedAndExpired(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long", time.Hour)
	user := &core.User{ID: "u1", Email: "u1@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := m.Validate(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token = %v, want ErrInvalidToken", err)
	}

	other := NewJWTManager("a-completely-different-signing-key!", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key = %v, want ErrInvalidToken", err)
	}

	expired := NewJWTManager("test-secret-at-least-32-bytes-long", -time.Minute)
	tok, err := expired.Generate(user)
	if err != nil {
		t.Fatalf("Generate expired: %v", err)
	}
	if _, err := expired.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token = %v, want ErrInvalidToken", err)
	}
}
