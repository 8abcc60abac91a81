package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-auth-stateless/middleware/jwtware"
)

// AuthenticatedContext is the identity bound to a single request. It is
// created by the jwtware middleware and discarded with the request.
type AuthenticatedContext struct {
	Identity Identity
	Claims   AuthClaims
	roles    []string
}

// NewAuthenticatedContext derives authorities from the identity role
func NewAuthenticatedContext(identity Identity, claims AuthClaims) *AuthenticatedContext {
	return &AuthenticatedContext{
		Identity: identity,
		Claims:   claims,
		roles:    UserRole(identity.Role()).Authorities(),
	}
}

// Authorities lists the roles granted to the request
func (a *AuthenticatedContext) Authorities() []string {
	out := make([]string, len(a.roles))
	copy(out, a.roles)
	return out
}

var _ jwtware.Principal = (*AuthenticatedContext)(nil)

// FromContext finds the authenticated context in a standard context
func FromContext(ctx context.Context) (*AuthenticatedContext, bool) {
	p, ok := jwtware.PrincipalFromContext(ctx)
	if !ok {
		return nil, false
	}
	ac, ok := p.(*AuthenticatedContext)
	return ac, ok
}

// FromFiber finds the authenticated context stored in the request locals
func FromFiber(c *fiber.Ctx, key string) (*AuthenticatedContext, bool) {
	p, ok := jwtware.PrincipalFromCtx(c, key)
	if !ok {
		return nil, false
	}
	ac, ok := p.(*AuthenticatedContext)
	return ac, ok
}

// CurrentIdentity returns the identity of the request, if any
func CurrentIdentity(ctx context.Context) (Identity, bool) {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	return ac.Identity, true
}
