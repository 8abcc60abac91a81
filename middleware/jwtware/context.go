package jwtware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type contextKey struct {
	name string
}

var principalCtxKey = &contextKey{"principal"}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext returns the principal bound to ctx
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok && p != nil
}

// PrincipalFromCtx returns the principal stored in the request locals
// under key, "user" when key is empty
func PrincipalFromCtx(c *fiber.Ctx, key string) (Principal, bool) {
	if key == "" {
		key = "user"
	}
	p, ok := c.Locals(key).(Principal)
	return p, ok && p != nil
}
