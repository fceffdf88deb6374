package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "academic-scheduler", time.Hour, Claims{UserID: "S001", Role: RoleStudent})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ParseToken("secret", "academic-scheduler", token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.UserID != "S001" || claims.Subject != "S001" {
		t.Errorf("Expected subject S001, got %s/%s", claims.UserID, claims.Subject)
	}
	if claims.Role != RoleStudent {
		t.Errorf("Expected role %s, got %s", RoleStudent, claims.Role)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := NewAccessToken("secret", "academic-scheduler", time.Hour, Claims{UserID: "S001", Role: RoleStudent})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ParseToken("other", "academic-scheduler", token); err == nil {
		t.Error("Expected error for wrong secret")
	}
	if _, err := ParseToken("secret", "someone-else", token); err == nil {
		t.Error("Expected error for wrong issuer")
	}

	expired, err := NewAccessToken("secret", "academic-scheduler", -time.Minute, Claims{UserID: "S001"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := ParseToken("secret", "academic-scheduler", expired); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestBcryptVerifier(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	v := BcryptVerifier{}
	if err := v.Verify(hash, "s3cret"); err != nil {
		t.Errorf("Expected password to verify, got %v", err)
	}
	if err := v.Verify(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}
