package auth

import (
	"testing"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

func testTokenConfig(now time.Time) TokenConfig {
	return TokenConfig{
		Secret: []byte("test-secret-key"),
		Issuer: "student-erp",
		Now:    func() time.Time { return now },
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testTokenConfig(now)

	token, issued, err := IssueToken("2025CS0001", RoleStudent, TokenUseAccess, cfg)
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}
	if issued.TokenID == "" {
		t.Fatal("issued claims missing jti")
	}
	if !issued.ExpiresAt.Equal(now.Add(AccessTokenTTL)) {
		t.Fatalf("ExpiresAt = %v, want %v", issued.ExpiresAt, now.Add(AccessTokenTTL))
	}

	claims, err := ValidateToken(token, TokenUseAccess, cfg)
	if err != nil {
		t.Fatalf("ValidateToken() = %v", err)
	}
	if claims.Subject != "2025CS0001" || claims.Role != RoleStudent || claims.Use != TokenUseAccess {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.TokenID != issued.TokenID {
		t.Fatalf("jti = %s, want %s", claims.TokenID, issued.TokenID)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testTokenConfig(now)
	token, _, err := IssueToken("2025CS0001", RoleStudent, TokenUseAccess, cfg)
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}

	late := testTokenConfig(now.Add(AccessTokenTTL + time.Minute))
	_, err = ValidateToken(token, TokenUseAccess, late)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenExpired {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeAuthTokenExpired)
	}
}

func TestValidateTokenUseMismatch(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testTokenConfig(now)
	refresh, _, err := IssueToken("2025CS0001", RoleStudent, TokenUseRefresh, cfg)
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}
	_, err = ValidateToken(refresh, TokenUseAccess, cfg)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeAuthTokenInvalid)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := IssueToken("2025CS0001", RoleStudent, TokenUseAccess, testTokenConfig(now))
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}
	other := TokenConfig{Secret: []byte("another-secret"), Issuer: "student-erp", Now: func() time.Time { return now }}
	_, err = ValidateToken(token, TokenUseAccess, other)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeAuthTokenInvalid)
	}
}

func TestValidateTokenIssuerMismatch(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := IssueToken("2025CS0001", RoleStudent, TokenUseAccess, testTokenConfig(now))
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}
	other := testTokenConfig(now)
	other.Issuer = "someone-else"
	if _, err := ValidateToken(token, TokenUseAccess, other); err == nil {
		t.Fatal("ValidateToken with wrong issuer = nil, want error")
	}
}

func TestIssueTokenRejectsBadInput(t *testing.T) {
	cfg := testTokenConfig(time.Now())
	if _, _, err := IssueToken("", RoleStudent, TokenUseAccess, cfg); err == nil {
		t.Fatal("empty subject accepted")
	}
	if _, _, err := IssueToken("2025CS0001", "superuser", TokenUseAccess, cfg); err == nil {
		t.Fatal("unknown role accepted")
	}
	if _, _, err := IssueToken("2025CS0001", RoleStudent, TokenUseAccess, TokenConfig{}); err == nil {
		t.Fatal("missing secret accepted")
	}
}

func TestRefreshTokenTTL(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	_, issued, err := IssueToken("2024ADM0001", RoleAdmin, TokenUseRefresh, testTokenConfig(now))
	if err != nil {
		t.Fatalf("IssueToken() = %v", err)
	}
	if !issued.ExpiresAt.Equal(now.Add(RefreshTokenTTL)) {
		t.Fatalf("ExpiresAt = %v, want %v", issued.ExpiresAt, now.Add(RefreshTokenTTL))
	}
}
