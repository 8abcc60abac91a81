// Package config loads the service configuration from AUTH_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"

	auth "github.com/goliatone/go-auth-stateless"
)

// MinSigningKeyLength is the shortest accepted HS256 secret, in bytes
const MinSigningKeyLength = 32

type Config struct {
	Address   string `env:"AUTH_ADDRESS" envDefault:":8080"`
	DSN       string `env:"AUTH_DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	LogLevel  string `env:"AUTH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"AUTH_LOG_FORMAT" envDefault:"json"`

	SigningKey             string        `env:"AUTH_SIGNING_KEY,unset"`
	SigningMethod          string        `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey             string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration        time.Duration `env:"AUTH_TOKEN_EXPIRATION" envDefault:"1h"`
	VerificationExpiration time.Duration `env:"AUTH_VERIFICATION_EXPIRATION" envDefault:"15m"`
	TokenLookup            string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme             string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer                 string        `env:"AUTH_ISSUER"`
	Audience               []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	AllowedOrigins         []string      `env:"AUTH_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`
	UseHashid              bool          `env:"AUTH_USE_HASHID" envDefault:"false"`
}

var _ auth.Config = Config{}

// Load reads the process environment
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256")),
		validation.Field(&c.ContextKey, validation.Required),
		validation.Field(&c.TokenExpiration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.VerificationExpiration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.TokenLookup, validation.Required),
		validation.Field(&c.AllowedOrigins, validation.Required, validation.By(noBlankEntries)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "console")),
	)
}

func noBlankEntries(value any) error {
	entries, _ := value.([]string)
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			return errors.New("must not contain blank entries")
		}
	}
	return nil
}

func (c Config) GetSigningKey() string {
	return c.SigningKey
}

func (c Config) GetSigningMethod() string {
	return c.SigningMethod
}

func (c Config) GetContextKey() string {
	return c.ContextKey
}

func (c Config) GetTokenExpiration() time.Duration {
	return c.TokenExpiration
}

func (c Config) GetVerificationExpiration() time.Duration {
	return c.VerificationExpiration
}

func (c Config) GetTokenLookup() string {
	return c.TokenLookup
}

func (c Config) GetAuthScheme() string {
	return c.AuthScheme
}

func (c Config) GetIssuer() string {
	return c.Issuer
}

func (c Config) GetAudience() []string {
	return c.Audience
}

func (c Config) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

func (c Config) GetUseHashid() bool {
	return c.UseHashid
}
