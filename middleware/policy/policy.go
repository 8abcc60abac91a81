// Package policy enforces an ordered table of path rules after the request
// principal has been resolved. Rules are evaluated top to bottom and the
// first match wins; a path no rule matches requires authentication.
package policy

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-auth-stateless/middleware/jwtware"
)

// Requirement is what a rule demands from a request
type Requirement int

const (
	Authenticated Requirement = iota
	Public
)

func (r Requirement) String() string {
	switch r {
	case Public:
		return "PUBLIC"
	case Authenticated:
		return "AUTHENTICATED"
	default:
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
}

// Decision is the outcome of evaluating a request
type Decision int

const (
	Allowed Decision = iota
	// Unauthenticated means the path needs a principal and there is none
	Unauthenticated
	// Denied means the principal lacks the rule's minimum role
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "ALLOWED"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case Denied:
		return "DENIED"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Rule binds a path pattern to a requirement.
//
// A bare "*" or "**" matches every path. Other patterns are globs over
// '/' separated segments where "*" matches within one segment and "**"
// across segments; "/auth/**" also matches "/auth" itself.
type Rule struct {
	Pattern     string
	Requirement Requirement
	// MinimumRole, when set on an Authenticated rule, must be satisfied by
	// one of the principal authorities
	MinimumRole string
}

type compiledRule struct {
	Rule
	matcher glob.Glob
	base    string
}

func (r compiledRule) matches(path string) bool {
	if r.base != "" && path == r.base {
		return true
	}
	return r.matcher.Match(path)
}

// RoleChecker reports whether authorities satisfy minRole
type RoleChecker func(authorities []string, minRole string) bool

// Policy is immutable once built and safe for concurrent use
type Policy struct {
	rules         []compiledRule
	roleChecker   RoleChecker
	caseSensitive bool
	strictRouting bool
}

// Option configures a Policy
type Option func(*Policy)

// WithRoleChecker sets how MinimumRole is evaluated. Without one, a
// principal satisfies MinimumRole only if it lists that exact authority.
func WithRoleChecker(fn RoleChecker) Option {
	return func(p *Policy) {
		if fn != nil {
			p.roleChecker = fn
		}
	}
}

// WithRouting makes the policy see paths the way the router matches
// them. The zero values mirror fiber's defaults: "/ADMIN" and "/admin/"
// both reach the "/admin" route, so both are evaluated as "/admin".
func WithRouting(caseSensitive, strictRouting bool) Option {
	return func(p *Policy) {
		p.caseSensitive = caseSensitive
		p.strictRouting = strictRouting
	}
}

// New compiles rules in order
func New(rules []Rule, opts ...Option) (*Policy, error) {
	p := &Policy{roleChecker: exactAuthority}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	for _, r := range rules {
		if !p.caseSensitive {
			r.Pattern = strings.ToLower(r.Pattern)
		}
		cr, err := compile(r)
		if err != nil {
			return nil, err
		}
		p.rules = append(p.rules, cr)
	}

	return p, nil
}

// MustNew is New that panics on invalid patterns
func MustNew(rules []Rule, opts ...Option) *Policy {
	p, err := New(rules, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func compile(r Rule) (compiledRule, error) {
	pattern := strings.TrimSpace(r.Pattern)
	if pattern == "" {
		return compiledRule{}, fmt.Errorf("policy: empty pattern")
	}

	var (
		g   glob.Glob
		err error
	)
	if pattern == "*" || pattern == "**" {
		g, err = glob.Compile("**")
	} else {
		g, err = glob.Compile(pattern, '/')
	}
	if err != nil {
		return compiledRule{}, fmt.Errorf("policy: invalid pattern %q: %w", r.Pattern, err)
	}

	cr := compiledRule{Rule: r, matcher: g}
	if strings.HasSuffix(pattern, "/**") {
		cr.base = strings.TrimSuffix(pattern, "/**")
	}
	return cr, nil
}

// normalize folds path the way the router does before matching routes
func (p *Policy) normalize(path string) string {
	if !p.caseSensitive {
		path = strings.ToLower(path)
	}
	if !p.strictRouting && len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Match returns the first rule matching path
func (p *Policy) Match(path string) (Rule, bool) {
	path = p.normalize(path)
	for _, r := range p.rules {
		if r.matches(path) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}

// Decide evaluates path for an optional principal
func (p *Policy) Decide(path string, principal jwtware.Principal) Decision {
	rule, ok := p.Match(path)
	if !ok {
		rule = Rule{Requirement: Authenticated}
	}

	if rule.Requirement == Public {
		return Allowed
	}

	if principal == nil {
		return Unauthenticated
	}

	if rule.MinimumRole != "" && !p.roleChecker(principal.Authorities(), rule.MinimumRole) {
		return Denied
	}

	return Allowed
}

// HandlerConfig configures the fiber handler
type HandlerConfig struct {
	// ContextKey is where the jwtware middleware stored the principal
	ContextKey string
	// Unauthenticated renders the rejection for a missing principal
	Unauthenticated fiber.Handler
	// Denied renders the rejection for an insufficient role
	Denied fiber.Handler
}

// Handler enforces the policy; it must run after the jwtware middleware
func (p *Policy) Handler(cfg ...HandlerConfig) fiber.Handler {
	var hc HandlerConfig
	if len(cfg) > 0 {
		hc = cfg[0]
	}
	if hc.Unauthenticated == nil {
		hc.Unauthenticated = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
	}
	if hc.Denied == nil {
		hc.Denied = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
	}

	return func(c *fiber.Ctx) error {
		principal, _ := jwtware.PrincipalFromCtx(c, hc.ContextKey)

		switch p.Decide(c.Path(), principal) {
		case Unauthenticated:
			return hc.Unauthenticated(c)
		case Denied:
			return hc.Denied(c)
		default:
			return c.Next()
		}
	}
}

func exactAuthority(authorities []string, minRole string) bool {
	for _, a := range authorities {
		if a == minRole {
			return true
		}
	}
	return false
}
