package httpapi

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"modastore/backend/internal/domain"
	"modastore/backend/internal/store"
)

type userStoreStub struct {
	users map[string]domain.UserAccount
}

func (s *userStoreStub) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	user, exists := s.users[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func stubUsers(t *testing.T) *userStoreStub {
	t.Helper()
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:    "admin",
				Password:    hashFor(t, "admin123"),
				DisplayName: "Administrator",
				Role:        domain.RoleAdmin,
				Active:      true,
				CreatedAt:   time.Now().UTC(),
			},
			"dormant": {
				Username:  "dormant",
				Password:  hashFor(t, "dormant123"),
				Role:      domain.RoleSalesperson,
				Active:    false,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubUsers(t))

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "  ADMIN ",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("role = %s, want admin", resp.Role)
	}
	if resp.DisplayName != "Administrator" {
		t.Fatalf("display name = %s", resp.DisplayName)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("actor = %+v, want admin/admin", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubUsers(t))

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected error for unknown user")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "", Password: "admin123"}); err == nil {
		t.Fatalf("expected error for blank username")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubUsers(t))

	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "dormant", Password: "dormant123"})
	if err == nil || err.Error() != "account is inactive" {
		t.Fatalf("err = %v, want inactive account error", err)
	}
}

func TestLoginRejectsPlainTextStoredPassword(t *testing.T) {
	users := &userStoreStub{
		users: map[string]domain.UserAccount{
			"legacy": {Username: "legacy", Password: "plain123", Role: domain.RoleAdmin, Active: true},
		},
	}
	manager := NewAuthManager("test-secret", time.Hour, users)

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "legacy", Password: "plain123"}); err == nil {
		t.Fatalf("expected login against a non-hashed record to fail")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	users := stubUsers(t)
	issuer := NewAuthManager("secret-one", time.Hour, users)
	verifier := NewAuthManager("secret-two", time.Hour, users)

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubUsers(t))

	user := domain.UserAccount{Username: "admin", Role: domain.RoleAdmin}
	token, err := manager.sign(&user, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubUsers(t))

	if _, err := manager.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}
