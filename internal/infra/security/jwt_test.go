package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenManager_SignAndVerify(t *testing.T) {
	manager, err := NewTokenManager("test-secret", "entitlement-service", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := manager.Sign(AccessTokenOptions{
		UserID:    "user-1",
		CompanyID: "co-1",
		Roles:     []string{"admin", "admin", " "},
	})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	claims, err := manager.Verify(signed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("expected uid user-1, got %s", claims.UserID)
	}
	if claims.CompanyID != "co-1" {
		t.Errorf("expected cid co-1, got %s", claims.CompanyID)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("expected deduplicated roles, got %v", claims.Roles)
	}
	if !claims.HasRole("admin") {
		t.Errorf("expected HasRole(admin) to be true")
	}
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	signer, err := NewTokenManager("secret-a", "entitlement-service", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	verifier, err := NewTokenManager("secret-b", "entitlement-service", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := signer.Sign(AccessTokenOptions{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	manager, err := NewTokenManager("test-secret", "entitlement-service", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := manager.Sign(AccessTokenOptions{
		UserID:   "user-1",
		IssuedAt: time.Now().Add(-2 * time.Hour),
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := manager.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("  ", "issuer", time.Minute); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}
