package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/id"
)

// Token lifetimes.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenUse distinguishes access from refresh tokens.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// Role identifies the principal class a token was issued for.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role value is recognized.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// TokenConfig defines how tokens are signed and verified.
type TokenConfig struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

// Claims captures validated token claims.
type Claims struct {
	Subject   string
	Role      Role
	Use       TokenUse
	TokenID   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// tokenClaims is the internal claims type used for JWT encoding.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role Role     `json:"role"`
	Use  TokenUse `json:"use"`
}

// IssueToken signs a token for the subject with the given use and TTL
// derived from the use. The returned claims include the generated jti.
func IssueToken(subject string, role Role, use TokenUse, cfg TokenConfig) (string, Claims, error) {
	if len(cfg.Secret) == 0 {
		return "", Claims{}, errors.New("token signer is not configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", Claims{}, errors.New("token subject is required")
	}
	if !role.Valid() {
		return "", Claims{}, fmt.Errorf("invalid role %q", role)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ttl := AccessTokenTTL
	if use == TokenUseRefresh {
		ttl = RefreshTokenTTL
	}
	now := cfg.Now().UTC()
	jti, err := id.NewID()
	if err != nil {
		return "", Claims{}, fmt.Errorf("generate token id: %w", err)
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Use:  use,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, Claims{
		Subject:   subject,
		Role:      role,
		Use:       use,
		TokenID:   jti,
		ExpiresAt: now.Add(ttl),
		IssuedAt:  now,
	}, nil
}

// ValidateToken verifies a token's signature and claims for the expected
// use. Expiry is checked against cfg.Now rather than the library clock.
func ValidateToken(token string, use TokenUse, cfg TokenConfig) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token is required")
	}
	if len(cfg.Secret) == 0 {
		return Claims{}, errors.New("token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if cfg.Issuer != "" && parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token issuer mismatch")
	}
	if parsed.Subject == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token subject is required")
	}
	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token jti is required")
	}
	if !parsed.Role.Valid() {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token role is invalid")
	}
	if parsed.Use != use {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token use mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenExpired, "token is expired")
	}

	claims := Claims{
		Subject:   parsed.Subject,
		Role:      parsed.Role,
		Use:       parsed.Use,
		TokenID:   parsed.ID,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthTokenInvalid, "token is invalid")
}

// RevocationStore records revoked token IDs until their natural expiry.
type RevocationStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	// PurgeExpiredRevocations drops revocation rows whose tokens have
	// already expired and returns the number removed.
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}
