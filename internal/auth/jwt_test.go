package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("userID = %q, want user-1", claims.UserID)
	}
	if claims.TokenType != "access" {
		t.Errorf("type = %q, want access", claims.TokenType)
	}
	if claims.TokenID != "" {
		t.Errorf("access token must not carry a token ID, got %q", claims.TokenID)
	}
}

func TestGenerateAndValidateRefreshToken(t *testing.T) {
	token, err := GenerateRefreshToken("secret", "user-1", "tid-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("type = %q, want refresh", claims.TokenType)
	}
	if claims.TokenID != "tid-1" {
		t.Errorf("tokenID = %q, want tid-1", claims.TokenID)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not.a.jwt"); err == nil {
		t.Error("expected validation to fail for garbage input")
	}
}

func TestValidateToken_RejectsUnsignedAlg(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1", TokenType: "access"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken("secret", token); err == nil {
		t.Error("expected alg=none token to be rejected")
	}
}
