package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// DefaultVerificationTTL is how long a verification code stays valid
const DefaultVerificationTTL = 15 * time.Minute

const maxCodeAttempts = 5

// CodeGenerator produces verification codes
type CodeGenerator func() (string, error)

// SixDigitCode returns a uniformly random code in [100000, 999999]
func SixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// accountDeps are the collaborators shared by the account commands
type accountDeps struct {
	store           CredentialStore
	hasher          PasswordHasher
	mailer          Mailer
	logger          Logger
	activitySink    ActivitySink
	codes           CodeGenerator
	now             func() time.Time
	verificationTTL time.Duration
	useHashid       bool
}

// AccountOption configures the account command handlers
type AccountOption func(*accountDeps)

func WithAccountLogger(logger Logger) AccountOption {
	return func(d *accountDeps) {
		d.logger = normalizeLogger(logger)
	}
}

func WithAccountActivitySink(sink ActivitySink) AccountOption {
	return func(d *accountDeps) {
		d.activitySink = normalizeActivitySink(sink)
	}
}

func WithVerificationTTL(ttl time.Duration) AccountOption {
	return func(d *accountDeps) {
		if ttl > 0 {
			d.verificationTTL = ttl
		}
	}
}

func WithCodeGenerator(gen CodeGenerator) AccountOption {
	return func(d *accountDeps) {
		if gen != nil {
			d.codes = gen
		}
	}
}

func WithAccountClock(now func() time.Time) AccountOption {
	return func(d *accountDeps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithHashid derives user ids from the email address instead of random
// UUIDs
func WithHashid(enabled bool) AccountOption {
	return func(d *accountDeps) {
		d.useHashid = enabled
	}
}

func newAccountDeps(store CredentialStore, hasher PasswordHasher, mailer Mailer, opts ...AccountOption) accountDeps {
	if hasher == nil {
		hasher = defaultHasher
	}
	d := accountDeps{
		store:           store,
		hasher:          hasher,
		mailer:          mailer,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		codes:           SixDigitCode,
		now:             time.Now,
		verificationTTL: DefaultVerificationTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// newVerificationCode returns a code no pending user holds
func (d accountDeps) newVerificationCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := d.codes()
		if err != nil {
			return "", Wrap(err, ErrInternal)
		}

		_, err = d.store.FindByVerificationCode(ctx, code)
		if IsError(err, ErrIdentityNotFound) {
			return code, nil
		}
		if err != nil {
			return "", Wrap(err, ErrInternal)
		}
	}
	return "", WithMetadata(ErrInternal, map[string]any{"reason": "verification code space exhausted"})
}

func (d accountDeps) sendVerification(ctx context.Context, user *User) error {
	if d.mailer == nil || user.VerificationCode == nil {
		return nil
	}
	return d.mailer.SendVerificationEmail(ctx, IdentityFromUser(user), *user.VerificationCode)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return Wrap(ctx.Err(), ErrInternal)
	default:
		return nil
	}
}
