package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/goliatone/go-auth-stateless/middleware/jwtware"
	"github.com/goliatone/go-auth-stateless/middleware/policy"
)

// DefaultRules is the access table used when none is configured
func DefaultRules() []policy.Rule {
	return []policy.Rule{
		{Pattern: "/auth/**", Requirement: policy.Public},
		{Pattern: "/health", Requirement: policy.Public},
		{Pattern: "*", Requirement: policy.Authenticated},
	}
}

// SecurityChain is the ordered set of handlers every request goes through
// before reaching a route: CORS, token authentication, then access policy.
type SecurityChain struct {
	cfg     Config
	auther  *Auther
	policy  *policy.Policy
	logger  Logger
	rules   []policy.Rule
	routing []policy.Option
}

type SecurityChainOption func(*SecurityChain)

func WithSecurityLogger(logger Logger) SecurityChainOption {
	return func(s *SecurityChain) {
		s.logger = normalizeLogger(logger)
	}
}

// WithRules replaces the default access table
func WithRules(rules []policy.Rule) SecurityChainOption {
	return func(s *SecurityChain) {
		s.rules = rules
	}
}

// WithRouting aligns path matching with the fiber app the chain is
// installed on. Pass the app's CaseSensitive and StrictRouting settings.
func WithRouting(caseSensitive, strictRouting bool) SecurityChainOption {
	return func(s *SecurityChain) {
		s.routing = []policy.Option{policy.WithRouting(caseSensitive, strictRouting)}
	}
}

func NewSecurityChain(cfg Config, auther *Auther, opts ...SecurityChainOption) *SecurityChain {
	s := &SecurityChain{
		cfg:    cfg,
		auther: auther,
		logger: defLogger{},
		rules:  DefaultRules(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	policyOpts := append([]policy.Option{policy.WithRoleChecker(HasAuthority)}, s.routing...)
	s.policy = policy.MustNew(s.rules, policyOpts...)

	return s
}

// Policy returns the compiled access table
func (s *SecurityChain) Policy() *policy.Policy {
	return s.policy
}

// Handlers returns the chain in execution order
func (s *SecurityChain) Handlers() []fiber.Handler {
	return []fiber.Handler{
		s.CORS(),
		s.Authenticate(),
		s.Authorize(),
	}
}

// Install mounts the chain on router
func (s *SecurityChain) Install(router fiber.Router) {
	for _, h := range s.Handlers() {
		router.Use(h)
	}
}

// CORS answers preflight requests and decorates responses for the allowed
// origins. Credentials are not allowed.
func (s *SecurityChain) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(s.cfg.GetAllowedOrigins(), ","),
		AllowMethods:     strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete}, ","),
		AllowHeaders:     strings.Join([]string{fiber.HeaderAuthorization, fiber.HeaderContentType}, ","),
		AllowCredentials: false,
	})
}

// Authenticate populates the request principal from a bearer token. It
// never rejects a request.
func (s *SecurityChain) Authenticate() fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenValidator:    s.auther,
		PrincipalResolver: s.auther,
		ContextKey:        s.cfg.GetContextKey(),
		TokenLookup:       s.cfg.GetTokenLookup(),
		AuthScheme:        s.cfg.GetAuthScheme(),
		Logger:            s.logger,
	})
}

// Authorize enforces the access table
func (s *SecurityChain) Authorize() fiber.Handler {
	return s.policy.Handler(policy.HandlerConfig{
		ContextKey: s.cfg.GetContextKey(),
		Unauthenticated: func(c *fiber.Ctx) error {
			return ErrorResponse(c, s.logger, ErrUnauthenticated)
		},
		Denied: func(c *fiber.Ctx) error {
			return ErrorResponse(c, s.logger, ErrAccessDenied)
		},
	})
}
