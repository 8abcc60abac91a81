package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService issues and verifies signed tokens
type TokenService interface {
	Issue(identity Identity) (string, error)
	Verify(raw string) (*JWTClaims, error)
	TTL() time.Duration
}

// TokenServiceImpl implements the TokenService interface with HS256
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
	decorator  ClaimsDecorator
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenIssuer sets the iss claim and requires it on verification
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenAudience sets the aud claim and requires it on verification
func WithTokenAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = jwt.ClaimStrings(audience)
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenClock overrides the time source used to issue and verify
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithClaimsDecorator lets decorator add extension claims before signing
func WithClaimsDecorator(decorator ClaimsDecorator) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.decorator = normalizeClaimsDecorator(decorator)
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		logger:     defLogger{},
		now:        time.Now,
		decorator:  noopClaimsDecorator{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// NewTokenServiceFromConfig builds a TokenService from Config
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenAudience(cfg.GetAudience()...),
		WithTokenLogger(logger),
	)
}

func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for identity valid for the configured TTL
func (ts *TokenServiceImpl) Issue(identity Identity) (string, error) {
	if identity == nil || identity.ID() == "" {
		return "", ErrIdentityNotFound
	}

	now := ts.now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	guard := captureImmutableClaims(claims)
	if err := ts.decorator.Decorate(identity, claims); err != nil {
		return "", Wrap(err, ErrInternal)
	}
	if err := guard.validate(claims); err != nil {
		ts.logger.Error("claims decorator mutated a protected claim", "error", err)
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", Wrap(err, ErrInternal)
	}

	return signed, nil
}

// Verify parses raw and checks its signature and expiry. Errors are always
// one of ErrTokenMalformed, ErrTokenBadSignature or ErrTokenExpired.
func (ts *TokenServiceImpl) Verify(raw string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		mapped := mapTokenError(err)
		ts.logger.Debug("token verification failed", "reason", mapped.TextCode)
		return nil, mapped
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject() == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func mapTokenError(err error) *goerrors.Error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return Wrap(err, ErrTokenBadSignature)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Wrap(err, ErrTokenExpired)
	default:
		return Wrap(err, ErrTokenMalformed)
	}
}
