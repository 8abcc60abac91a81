package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-stateless"
)

func TestResendVerification_IssuesFreshCode(t *testing.T) {
	ctx := context.Background()
	f := newVerifyFixture(t)
	mailer := new(MockMailer)
	mailer.On("SendVerificationEmail", mock.Anything, mock.Anything, "777777").Return(nil).Once()

	// the first code has expired
	f.now = f.now.Add(time.Hour)

	handler := auth.NewResendVerificationHandler(f.store, mailer,
		auth.WithAccountLogger(nopLogger{}),
		auth.WithAccountClock(f.clock),
		auth.WithAccountActivitySink(f.recorder),
		auth.WithCodeGenerator(codeSequence("777777")),
	)

	require.NoError(t, handler.Execute(ctx, auth.ResendVerificationMessage{Email: "ALICE@example.com"}))

	stored, err := f.store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "777777", *stored.VerificationCode)
	assert.Equal(t, f.now.Add(auth.DefaultVerificationTTL), *stored.VerificationExpiresAt)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventVerificationReissued}, f.recorder.types())
	mailer.AssertExpectations(t)

	// old code no longer works, the new one does
	verify := f.handler()
	err = verify.Execute(ctx, auth.VerifyAccountMessage{Email: "alice@example.com", VerificationCode: "123456"})
	assert.ErrorIs(t, err, auth.ErrInvalidVerificationCode)

	err = verify.Execute(ctx, auth.VerifyAccountMessage{Email: "alice@example.com", VerificationCode: "777777"})
	assert.NoError(t, err)
}

func TestResendVerification_DoesNotRevealAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		f := newVerifyFixture(t)
		mailer := new(MockMailer)

		err := auth.NewResendVerificationHandler(f.store, mailer, auth.WithAccountLogger(nopLogger{})).
			Execute(ctx, auth.ResendVerificationMessage{Email: "ghost@example.com"})
		assert.NoError(t, err)
		mailer.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already verified", func(t *testing.T) {
		f := newVerifyFixture(t)
		require.NoError(t, f.handler().Execute(ctx, auth.VerifyAccountMessage{
			Email: "alice@example.com", VerificationCode: "123456",
		}))
		mailer := new(MockMailer)

		err := auth.NewResendVerificationHandler(f.store, mailer, auth.WithAccountLogger(nopLogger{})).
			Execute(ctx, auth.ResendVerificationMessage{Email: "alice@example.com"})
		assert.NoError(t, err)
		mailer.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything)

		stored, err := f.store.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, stored.Verified)
	})

	t.Run("mail failure", func(t *testing.T) {
		f := newVerifyFixture(t)
		mailer := new(MockMailer)
		mailer.On("SendVerificationEmail", mock.Anything, mock.Anything, "888888").Return(errors.New("smtp down"))

		err := auth.NewResendVerificationHandler(f.store, mailer,
			auth.WithAccountLogger(nopLogger{}),
			auth.WithCodeGenerator(codeSequence("888888")),
		).Execute(ctx, auth.ResendVerificationMessage{Email: "alice@example.com"})
		assert.NoError(t, err)
		mailer.AssertExpectations(t)

		stored, err := f.store.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "888888", *stored.VerificationCode)
	})
}

func TestResendVerification_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		f := newVerifyFixture(t)
		err := auth.NewResendVerificationHandler(f.store, nil).
			Execute(ctx, auth.ResendVerificationMessage{Email: "nope"})
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("db down"))

		err := auth.NewResendVerificationHandler(store, nil, auth.WithAccountLogger(nopLogger{})).
			Execute(ctx, auth.ResendVerificationMessage{Email: "alice@example.com"})
		assert.ErrorIs(t, err, auth.ErrInternal)
	})
}
