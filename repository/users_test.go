package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-stateless"
	"github.com/goliatone/go-auth-stateless/repository"
)

func newManager(t *testing.T) *repository.Manager {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	m, err := repository.Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	m.MustValidate()
	return m
}

func newUser(username, email, code string) *auth.User {
	now := time.Unix(1_700_000_000, 0).UTC()
	u := &auth.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		Role:         auth.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if code != "" {
		u.SetVerificationCode(code, now, 15*time.Minute)
	}
	return u
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, repository.DialectPostgres, repository.DialectFor("postgres://u:p@localhost/db"))
	assert.Equal(t, repository.DialectPostgres, repository.DialectFor("POSTGRESQL://localhost/db"))
	assert.Equal(t, repository.DialectSQLite, repository.DialectFor("file::memory:?cache=shared"))
	assert.Equal(t, repository.DialectSQLite, repository.DialectFor("/tmp/auth.db"))
}

func TestUsers_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	users := m.Users()
	assert.Equal(t, repository.DialectSQLite, m.Dialect())

	user := newUser("alice", "alice@example.com", "123456")
	saved, err := users.Save(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user.ID, saved.ID)

	byEmail, err := users.FindByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "alice", byEmail.Username)
	assert.Equal(t, user.PasswordHash, byEmail.PasswordHash)
	assert.Equal(t, auth.RoleMember, byEmail.Role)
	assert.False(t, byEmail.Verified)
	require.NotNil(t, byEmail.VerificationExpiresAt)
	assert.True(t, user.VerificationExpiresAt.Equal(*byEmail.VerificationExpiresAt))

	byUsername, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)

	byID, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	byCode, err := users.FindByVerificationCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byCode.ID)
}

func TestUsers_NotFound(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	_, err := users.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = users.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = users.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = users.FindByVerificationCode(ctx, "000000")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestUsers_SaveUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	user := newUser("alice", "alice@example.com", "123456")
	_, err := users.Save(ctx, user)
	require.NoError(t, err)

	user.MarkVerified(user.CreatedAt.Add(time.Minute))
	_, err = users.Save(ctx, user)
	require.NoError(t, err)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Nil(t, stored.VerificationCode)
	assert.Nil(t, stored.VerificationExpiresAt)

	_, err = users.FindByVerificationCode(ctx, "123456")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUsers_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	_, err := users.Save(ctx, newUser("alice", "alice@example.com", "111111"))
	require.NoError(t, err)

	tests := []struct {
		name string
		user *auth.User
	}{
		{name: "email", user: newUser("alice2", "alice@example.com", "222222")},
		{name: "username", user: newUser("alice", "other@example.com", "333333")},
		{name: "verification code", user: newUser("carol", "carol@example.com", "111111")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Save(ctx, tt.user)
			assert.ErrorIs(t, err, auth.ErrIdentityConflict)
		})
	}

	// users without a pending code do not collide
	a := newUser("dave", "dave@example.com", "")
	b := newUser("erin", "erin@example.com", "")
	_, err = users.Save(ctx, a)
	require.NoError(t, err)
	_, err = users.Save(ctx, b)
	require.NoError(t, err)
}

func TestUsers_List(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	first := newUser("alice", "alice@example.com", "")
	second := newUser("bob", "bob@example.com", "")
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	_, err := users.Save(ctx, second)
	require.NoError(t, err)
	_, err = users.Save(ctx, first)
	require.NoError(t, err)

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
}

func TestManager_RunInTx(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	boom := errors.New("rollback")
	err := m.RunInTx(ctx, nil, func(ctx context.Context, users *repository.Users) error {
		if _, err := users.Save(ctx, newUser("alice", "alice@example.com", "")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.Users().FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	err = m.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, users *repository.Users) error {
		_, err := users.Save(ctx, newUser("bob", "bob@example.com", ""))
		return err
	})
	require.NoError(t, err)

	_, err = m.Users().FindByEmail(ctx, "bob@example.com")
	assert.NoError(t, err)
}

func TestUsers_FindOneWithCriteria(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	alice := newUser("alice", "alice@example.com", "123456")
	_, err := users.Save(ctx, alice)
	require.NoError(t, err)
	_, err = users.Save(ctx, newUser("bob", "bob@example.com", ""))
	require.NoError(t, err)

	found, err := users.FindOne(ctx,
		repository.ByColumn("username", "alice"),
		repository.ByColumn("verified", false),
	)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = users.FindOne(ctx,
		repository.ByColumn("username", "alice"),
		repository.ByColumn("email", "bob@example.com"),
	)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	assert.True(t, auth.IsError(err, auth.ErrIdentityNotFound))
}

func TestUsers_SaveAssignsMissingID(t *testing.T) {
	ctx := context.Background()
	users := newManager(t).Users()

	user := newUser("alice", "alice@example.com", "")
	user.ID = uuid.Nil
	user.Role = ""

	saved, err := users.Save(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, auth.RoleMember, saved.Role)

	stored, err := users.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username)
}

func TestOpen_PoolSize(t *testing.T) {
	ctx := context.Background()

	memory, _, err := repository.Open(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	defer memory.Close()
	assert.Equal(t, 1, memory.Stats().MaxOpenConnections)

	onDisk, _, err := repository.Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer onDisk.Close()
	assert.Equal(t, 0, onDisk.Stats().MaxOpenConnections)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, repository.Migrate(ctx, m.DB(), m.Dialect()))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, repository.IsUniqueViolation(nil))
	assert.False(t, repository.IsUniqueViolation(errors.New("disk full")))
	assert.True(t, repository.IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.True(t, repository.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, repository.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
