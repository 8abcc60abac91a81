package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// UserProvider resolves identities from a CredentialStore
type UserProvider struct {
	store  CredentialStore
	hasher PasswordHasher
	logger Logger
	dummy  *dummyHash
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store CredentialStore, hasher PasswordHasher) *UserProvider {
	if hasher == nil {
		hasher = defaultHasher
	}
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
		dummy:  &dummyHash{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyIdentity will find the user, compare to the password, and return
// identity. Unknown identifiers and wrong passwords both yield
// ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.lookup(ctx, identifier)
	if err != nil {
		if !IsError(err, ErrIdentityNotFound) {
			return nil, Wrap(err, ErrInternal)
		}
		// burn the same work as a real comparison
		u.hasher.Verify(password, u.dummy.get(u.hasher))
		return nil, ErrInvalidCredentials
	}

	if !u.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrUnverified
	}

	return IdentityFromUser(user), nil
}

// FindIdentityByID resolves a token subject. Only verified users resolve.
func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if !user.Verified {
		return nil, ErrUnverified
	}

	return IdentityFromUser(user), nil
}

func (u *UserProvider) lookup(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrIdentityNotFound
	}
	if strings.Contains(identifier, "@") {
		return u.store.FindByEmail(ctx, NormalizeEmail(identifier))
	}
	return u.store.FindByUsername(ctx, identifier)
}
