package auth_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-stateless"
)

// countingHasher counts Verify calls so tests can check that unknown
// identifiers still pay for a comparison
type countingHasher struct {
	auth.PasswordHasher
	verifies atomic.Int32
}

func (c *countingHasher) Verify(plaintext, encoded string) bool {
	c.verifies.Add(1)
	return c.PasswordHasher.Verify(plaintext, encoded)
}

func storedUser(t *testing.T, h auth.PasswordHasher, password string, verified bool) *auth.User {
	t.Helper()
	hash, err := h.Hash(password)
	require.NoError(t, err)
	return &auth.User{
		ID:           uuid.New(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Verified:     verified,
	}
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	hasher := testHasher()

	t.Run("Successful verification by email", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})
		user := storedUser(t, hasher, "password123", true)

		store.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, " Test@Example.com ", "password123")

		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "testuser", identity.Username())
		assert.Equal(t, "test@example.com", identity.Email())
		assert.Equal(t, "admin", identity.Role())
		assert.True(t, identity.Verified())

		store.AssertExpectations(t)
	})

	t.Run("Successful verification by username", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})
		user := storedUser(t, hasher, "password123", true)

		store.On("FindByUsername", ctx, "testuser").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "testuser", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())

		store.AssertExpectations(t)
	})

	t.Run("Invalid password", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})
		user := storedUser(t, hasher, "correct_password", true)

		store.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("Unverified account with correct password", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})
		user := storedUser(t, hasher, "password123", false)

		store.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrUnverified)
	})

	t.Run("Unverified account with wrong password hides verification state", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})
		user := storedUser(t, hasher, "password123", false)

		store.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("Store failure is internal", func(t *testing.T) {
		store := new(MockCredentialStore)
		provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})

		store.On("FindByEmail", ctx, "test@example.com").Return(nil, errors.New("db down")).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrInternal)
	})
}

func TestUserProvider_EnumerationResistance(t *testing.T) {
	ctx := context.Background()
	hasher := &countingHasher{PasswordHasher: testHasher()}
	user := storedUser(t, hasher, "password123", true)

	store := new(MockCredentialStore)
	store.On("FindByEmail", mock.Anything, "test@example.com").Return(user, nil)
	store.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, auth.ErrIdentityNotFound)
	store.On("FindByUsername", mock.Anything, "ghost").Return(nil, auth.ErrIdentityNotFound)

	provider := auth.NewUserProvider(store, hasher).WithLogger(nopLogger{})

	_, wrongPassword := provider.VerifyIdentity(ctx, "test@example.com", "wrong")
	_, unknownEmail := provider.VerifyIdentity(ctx, "ghost@example.com", "wrong")
	_, unknownUsername := provider.VerifyIdentity(ctx, "ghost", "wrong")
	_, emptyIdentifier := provider.VerifyIdentity(ctx, "  ", "wrong")

	for _, err := range []error{wrongPassword, unknownEmail, unknownUsername, emptyIdentifier} {
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, auth.AsError(wrongPassword).Message, auth.AsError(err).Message)
		assert.Equal(t, auth.AsError(wrongPassword).TextCode, auth.AsError(err).TextCode)
		assert.Equal(t, auth.AsError(wrongPassword).Code, auth.AsError(err).Code)
	}

	// every attempt runs exactly one hash comparison
	assert.EqualValues(t, 4, hasher.verifies.Load())
}

func TestUserProviderFindIdentityByID(t *testing.T) {
	ctx := context.Background()
	hasher := testHasher()

	t.Run("Verified user resolves", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := storedUser(t, hasher, "password123", true)
		store.On("FindByID", ctx, user.ID).Return(user, nil).Once()

		identity, err := auth.NewUserProvider(store, hasher).FindIdentityByID(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
	})

	t.Run("Unverified user does not resolve", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := storedUser(t, hasher, "password123", false)
		store.On("FindByID", ctx, user.ID).Return(user, nil).Once()

		_, err := auth.NewUserProvider(store, hasher).FindIdentityByID(ctx, user.ID.String())
		assert.ErrorIs(t, err, auth.ErrUnverified)
	})

	t.Run("Invalid id", func(t *testing.T) {
		store := new(MockCredentialStore)
		_, err := auth.NewUserProvider(store, hasher).FindIdentityByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
		store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("Missing user", func(t *testing.T) {
		store := new(MockCredentialStore)
		id := uuid.New()
		store.On("FindByID", ctx, id).Return(nil, auth.ErrIdentityNotFound).Once()

		_, err := auth.NewUserProvider(store, hasher).FindIdentityByID(ctx, id.String())
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}
