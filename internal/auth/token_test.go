package auth

import (
	"testing"

	"github.com/ateliergpr/gpr/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, tokenID, err := GenerateToken(secret, "main", model.RoleMaintenance)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if tokenID == "" {
		t.Fatal("expected non-empty token ID")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.Username != "main" {
		t.Errorf("expected username 'main', got %q", claims.Username)
	}
	if claims.Role != model.RoleMaintenance {
		t.Errorf("expected role MAINT, got %q", claims.Role)
	}
	if claims.ID != tokenID {
		t.Errorf("expected token ID %q in claims, got %q", tokenID, claims.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := GenerateToken("secret1", "log", model.RoleLogistics)

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("main123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword(hash, "main123") {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("expected wrong password to fail verification")
	}
}
