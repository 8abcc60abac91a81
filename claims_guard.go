package auth

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// protectedClaims is a copy of every claim a decorator must leave alone
type protectedClaims struct {
	id        string
	subject   string
	issuer    string
	uid       string
	role      string
	audience  []string
	issuedAt  time.Time
	expiresAt time.Time
}

func captureImmutableClaims(claims *JWTClaims) protectedClaims {
	return protectedClaims{
		id:        claims.RegisteredClaims.ID,
		subject:   claims.RegisteredClaims.Subject,
		issuer:    claims.RegisteredClaims.Issuer,
		uid:       claims.UID,
		role:      claims.UserRole,
		audience:  slices.Clone([]string(claims.RegisteredClaims.Audience)),
		issuedAt:  numericTime(claims.RegisteredClaims.IssuedAt),
		expiresAt: numericTime(claims.RegisteredClaims.ExpiresAt),
	}
}

func (p protectedClaims) validate(claims *JWTClaims) error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"jti", claims.RegisteredClaims.ID == p.id},
		{"sub", claims.RegisteredClaims.Subject == p.subject},
		{"iss", claims.RegisteredClaims.Issuer == p.issuer},
		{"uid", claims.UID == p.uid},
		{"role", claims.UserRole == p.role},
		{"aud", slices.Equal([]string(claims.RegisteredClaims.Audience), p.audience)},
		{"iat", numericTime(claims.RegisteredClaims.IssuedAt).Equal(p.issuedAt)},
		{"exp", numericTime(claims.RegisteredClaims.ExpiresAt).Equal(p.expiresAt)},
		{"nbf", claims.RegisteredClaims.NotBefore == nil},
	}

	for _, c := range checks {
		if !c.ok {
			return immutableClaimViolation(c.name)
		}
	}
	return nil
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func immutableClaimViolation(field string) error {
	err := WithMetadata(ErrImmutableClaimMutation, map[string]any{"claim": field})
	err.Message = fmt.Sprintf("immutable claim mutated: %s", field)
	return err
}
