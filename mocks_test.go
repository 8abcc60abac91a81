package auth_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-stateless"
)

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	return userArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) FindByVerificationCode(ctx context.Context, code string) (*auth.User, error) {
	args := m.Called(ctx, code)
	return userArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func userArg(args mock.Arguments, i int) *auth.User {
	u, _ := args.Get(i).(*auth.User)
	return u
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, identity auth.Identity, code string) error {
	args := m.Called(ctx, identity, code)
	return args.Error(0)
}

// memoryStore is an in-memory auth.CredentialStore with the same unique
// constraints as the SQL schema
type memoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]auth.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[uuid.UUID]auth.User{}}
}

func (s *memoryStore) find(match func(u auth.User) bool) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, auth.ErrIdentityNotFound
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	return s.find(func(u auth.User) bool { return u.ID == id })
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return s.find(func(u auth.User) bool { return u.Email == email })
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return s.find(func(u auth.User) bool { return u.Username == username })
}

func (s *memoryStore) FindByVerificationCode(_ context.Context, code string) (*auth.User, error) {
	return s.find(func(u auth.User) bool {
		return u.VerificationCode != nil && *u.VerificationCode == code
	})
}

func (s *memoryStore) Save(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email || u.Username == user.Username {
			return nil, auth.ErrIdentityConflict
		}
	}
	s.users[user.ID] = *user
	out := *user
	return &out, nil
}

func (s *memoryStore) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *memoryStore) List(_ context.Context) ([]*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*auth.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		out = append(out, &u)
	}
	return out, nil
}

// activityRecorder collects emitted activity events
type activityRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// nopLogger keeps test output quiet
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testHasher is argon2id with cheap parameters
func testHasher() *auth.Argon2Hasher {
	return auth.NewArgon2Hasher(&auth.Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	})
}

// codeSequence hands out the given codes in order
func codeSequence(codes ...string) auth.CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}
