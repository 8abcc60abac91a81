package auth

import (
	"errors"
	"maps"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeUnverified              = "UNVERIFIED"
	TextCodeTokenMalformed          = "TOKEN_MALFORMED"
	TextCodeTokenBadSignature       = "TOKEN_BAD_SIGNATURE"
	TextCodeTokenExpired            = "TOKEN_EXPIRED"
	TextCodeUnauthenticated         = "UNAUTHENTICATED"
	TextCodeAccessDenied            = "ACCESS_DENIED"
	TextCodeIdentityNotFound        = "IDENTITY_NOT_FOUND"
	TextCodeIdentityConflict        = "IDENTITY_CONFLICT"
	TextCodeInvalidVerificationCode = "INVALID_VERIFICATION_CODE"
	TextCodeVerificationExpired     = "VERIFICATION_EXPIRED"
	TextCodeAlreadyVerified         = "ALREADY_VERIFIED"
	TextCodeValidation              = "VALIDATION"
	TextCodeInternal                = "INTERNAL"
	TextCodeImmutableClaimMutation  = "IMMUTABLE_CLAIM_MUTATION"
	TextCodeEmptyPassword           = "EMPTY_PASSWORD"
)

// ErrInvalidCredentials is returned for unknown identifiers and wrong
// passwords alike
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnverified credentials are correct but the email is not verified yet
var ErrUnverified = goerrors.New("account not verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnverified).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenBadSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenBadSignature).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is the only error a caller sees for a missing or
// rejected token on a protected path
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

var ErrAccessDenied = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(goerrors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeBadRequest)

// ErrIdentityConflict is returned when email or username are taken
var ErrIdentityConflict = goerrors.New("username or email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeIdentityConflict).
	WithCode(goerrors.CodeConflict)

var ErrInvalidVerificationCode = goerrors.New("invalid verification code", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidVerificationCode).
	WithCode(goerrors.CodeBadRequest)

var ErrVerificationExpired = goerrors.New("verification code has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeVerificationExpired).
	WithCode(goerrors.CodeBadRequest)

var ErrAlreadyVerified = goerrors.New("account is already verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

var ErrValidation = goerrors.New("invalid payload", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

var ErrInternal = goerrors.New("an unexpected error occurred", goerrors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(goerrors.CodeInternal)

// ErrImmutableClaimMutation is returned when a claims decorator touches
// a registered or identity claim
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaimMutation).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// derive copies base so sentinels are never annotated in place. The copy
// unwraps to base, and to cause when one is given.
func derive(base *goerrors.Error, cause error) *goerrors.Error {
	c := base.Clone()
	c.Metadata = maps.Clone(base.Metadata)
	if cause != nil {
		c.Source = errors.Join(base, cause)
	} else {
		c.Source = base
	}
	return c
}

// Wrap returns a copy of base that records err as its cause
func Wrap(err error, base *goerrors.Error) *goerrors.Error {
	return derive(base, err)
}

// WithMetadata returns a copy of base with meta merged into its metadata
func WithMetadata(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	c := derive(base, nil)
	if c.Metadata == nil {
		c.Metadata = make(map[string]any, len(meta))
	}
	maps.Copy(c.Metadata, meta)
	return c
}

// IsError reports whether the outermost categorized error in err carries
// the text code of target
func IsError(err error, target *goerrors.Error) bool {
	if err == nil || target == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == target.TextCode
}

// IsTokenError reports whether err is one of the token verification errors
func IsTokenError(err error) bool {
	return IsError(err, ErrTokenMalformed) ||
		IsError(err, ErrTokenBadSignature) ||
		IsError(err, ErrTokenExpired)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return IsError(err, ErrTokenExpired)
}

// AsError resolves err to a categorized error, falling back to ErrInternal
func AsError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code == 0 {
			richErr = derive(richErr, nil).WithCode(statusFor(richErr))
		}
		return richErr
	}
	return Wrap(err, ErrInternal)
}

func statusFor(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryNotFound:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
