package auth

// ClaimsDecorator adds application claims to a token before it is signed.
// Only JWTClaims.Extra may be changed; Issue fails if any registered or
// identity claim differs after Decorate returns.
type ClaimsDecorator interface {
	Decorate(identity Identity, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator
type ClaimsDecoratorFunc func(identity Identity, claims *JWTClaims) error

func (f ClaimsDecoratorFunc) Decorate(identity Identity, claims *JWTClaims) error {
	if f == nil {
		return nil
	}
	return f(identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(Identity, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
