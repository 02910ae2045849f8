package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidateTokens(t *testing.T) {
	pair, err := IssueTokens("u1", "a@b.no", "secret", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ValidateToken(pair.AccessToken, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@b.no" || claims.ID != pair.TokenID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := ValidateToken(pair.AccessToken, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	pair, _ := IssueTokens("u1", "a@b.no", "secret", time.Now().Add(-2*AccessTokenDuration))
	if _, err := ValidateToken(pair.AccessToken, "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}
