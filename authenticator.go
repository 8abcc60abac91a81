package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-stateless/middleware/jwtware"
)

// Auther ties credential verification to token issuance, and token
// verification back to stored identities
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

var (
	_ jwtware.TokenValidator    = (*Auther)(nil)
	_ jwtware.PrincipalResolver = (*Auther)(nil)
)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Authenticate checks a credential pair. It is only consulted at login.
func (s *Auther) Authenticate(ctx context.Context, identifier, password string) (Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		richErr := AsError(err)
		if richErr.Category == goerrors.CategoryInternal {
			s.logger.Error("authenticate lookup failed", "error", err)
		}
		recordActivity(ctx, s.activitySink, s.logger, ActivityEventLoginFailure, "", map[string]any{
			"reason": richErr.TextCode,
		})
		return nil, err
	}

	if identity == nil {
		return nil, ErrInvalidCredentials
	}

	return identity, nil
}

// Login authenticates the credential pair and issues a token
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, Identity, error) {
	identity, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokenService.Issue(identity)
	if err != nil {
		s.logger.Error("login token issue failed", "user_id", identity.ID(), "error", err)
		recordActivity(ctx, s.activitySink, s.logger, ActivityEventLoginFailure, identity.ID(), map[string]any{
			"reason": AsError(err).TextCode,
		})
		return "", nil, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEventLoginSuccess, identity.ID(), nil)

	return token, identity, nil
}

// Validate implements jwtware.TokenValidator
func (s *Auther) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := s.tokenService.Verify(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ResolvePrincipal implements jwtware.PrincipalResolver. The subject must
// still exist and be verified.
func (s *Auther) ResolvePrincipal(ctx context.Context, claims jwtware.AuthClaims) (jwtware.Principal, error) {
	identity, err := s.provider.FindIdentityByID(ctx, claims.Subject())
	if err != nil {
		return nil, err
	}

	authClaims, _ := claims.(AuthClaims)
	return NewAuthenticatedContext(identity, authClaims), nil
}
