package service

import (
	"context"
	"errors"
	"testing"

	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/repository"

	"github.com/google/uuid"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	store := repository.NewMemoryStore()
	if err := store.Seed(
		domain.Student{Matricule: "S001", FirstName: "Sam", LastName: "One", GroupID: uuid.New(), PasswordHash: hash},
		domain.Professor{Matricule: "P001", FirstName: "Ada", LastName: "Byron", Email: "ada@univ.test", PasswordHash: hash},
	); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	cfg := config.AuthConfig{Enabled: true, JWTSecret: "test-secret", JWTIssuer: "academic-scheduler", TokenTTL: 30}
	return NewAuthService(store.Students(), store.Professors(), auth.BcryptVerifier{}, cfg)
}

func TestLoginStudent(t *testing.T) {
	svc := newAuthService(t)

	token, err := svc.LoginStudent(context.Background(), &LoginRequest{Identifier: "S001", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token.TokenType != "Bearer" || token.ExpiresIn != 1800 {
		t.Errorf("Expected a 1800s bearer token, got %s %d", token.TokenType, token.ExpiresIn)
	}

	claims, err := auth.ParseToken("test-secret", "academic-scheduler", token.AccessToken)
	if err != nil {
		t.Fatalf("Expected a valid token, got %v", err)
	}
	if claims.UserID != "S001" || claims.Role != auth.RoleStudent {
		t.Errorf("Expected S001 as student, got %s as %s", claims.UserID, claims.Role)
	}

	_, err = svc.LoginStudent(context.Background(), &LoginRequest{Identifier: "S001", Password: "wrong"})
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	_, err = svc.LoginStudent(context.Background(), &LoginRequest{Identifier: "S404", Password: "s3cret"})
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for an unknown student, got %v", err)
	}
}

func TestLoginProfessor(t *testing.T) {
	svc := newAuthService(t)

	token, err := svc.LoginProfessor(context.Background(), &LoginRequest{Identifier: "ADA@univ.test", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token.Subject != "P001" || token.Role != auth.RoleProfessor {
		t.Errorf("Expected P001 as professor, got %s as %s", token.Subject, token.Role)
	}

	_, err = svc.LoginProfessor(context.Background(), &LoginRequest{Identifier: "S001", Password: "s3cret"})
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}
