// Package jwtware resolves bearer tokens into a request scoped principal.
//
// The middleware never rejects a request: a missing, malformed, expired or
// unresolvable token leaves the request unauthenticated and lets the access
// policy that runs after it decide.
package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// AuthClaims mirrors the verified claims exposed by the auth package
type AuthClaims interface {
	Subject() string
}

// TokenValidator verifies a raw token
type TokenValidator interface {
	Validate(raw string) (AuthClaims, error)
}

// Principal is the authenticated identity bound to a request
type Principal interface {
	Authorities() []string
}

// PrincipalResolver turns verified claims into a principal, typically by
// re-loading the subject from storage
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims AuthClaims) (Principal, error)
}

// Logger receives rejection reasons. It must not be given token material.
type Logger interface {
	Debug(msg string, args ...any)
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter            func(*fiber.Ctx) bool
	TokenValidator    TokenValidator
	PrincipalResolver PrincipalResolver
	ContextKey        string
	TokenLookup       string
	AuthScheme        string
	Logger            Logger
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return c.Next()
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			cfg.Logger.Debug("bearer token rejected", "path", c.Path(), "error", reason(err))
			return c.Next()
		}

		principal, err := cfg.PrincipalResolver.ResolvePrincipal(c.UserContext(), claims)
		if err != nil || principal == nil {
			cfg.Logger.Debug("token subject not resolvable", "path", c.Path(), "error", reason(err))
			return c.Next()
		}

		c.Locals(cfg.ContextKey, principal)
		c.SetUserContext(WithPrincipal(c.UserContext(), principal))

		return c.Next()
	}
}

// ExtractRawToken returns the first token any extractor finds
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	for _, extractor := range extractors {
		raw, err := extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", ErrJWTMissingOrMalformed
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.PrincipalResolver == nil {
		panic("AUTH: JWT middleware configuration: PrincipalResolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l+1:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

func reason(err error) string {
	if err == nil {
		return "no principal"
	}
	return err.Error()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
