package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-stateless"
)

// Users is the bun backed credential store
type Users struct {
	repo.Repository[*auth.User]
	db bun.IDB
}

var (
	_ auth.CredentialStore = (*Users)(nil)
	_ auth.UserLister      = (*Users)(nil)
)

func NewUsers(db *bun.DB) *Users {
	return &Users{
		Repository: repo.NewRepository[*auth.User](db, repo.ModelHandlers[*auth.User]{
			NewRecord: func() *auth.User { return &auth.User{} },
			GetID: func(u *auth.User) uuid.UUID {
				if u == nil {
					return uuid.Nil
				}
				return u.ID
			},
			SetID: func(u *auth.User, id uuid.UUID) {
				if u != nil {
					u.ID = id
				}
			},
		}),
		db: db,
	}
}

// withTx returns a copy of the store bound to tx
func (u *Users) withTx(tx bun.IDB) *Users {
	return &Users{Repository: u.Repository, db: tx}
}

// ByColumn selects rows where column equals value
func ByColumn(column string, value any) repo.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(fmt.Sprintf("?TableAlias.%s = ?", column), value)
	}
}

func (u *Users) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return u.FindOne(ctx, ByColumn("id", id))
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return u.FindOne(ctx, ByColumn("email", auth.NormalizeEmail(email)))
}

func (u *Users) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return u.FindOne(ctx, ByColumn("username", strings.TrimSpace(username)))
}

func (u *Users) FindByVerificationCode(ctx context.Context, code string) (*auth.User, error) {
	return u.FindOne(ctx, ByColumn("verification_code", strings.TrimSpace(code)))
}

// FindOne returns the first user matching every criteria. A miss is
// auth.ErrIdentityNotFound.
func (u *Users) FindOne(ctx context.Context, criteria ...repo.SelectCriteria) (*auth.User, error) {
	record := &auth.User{}
	q := u.db.NewSelect().Model(record)
	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if repo.IsRecordNotFound(err) {
			return nil, auth.Wrap(err, auth.ErrIdentityNotFound)
		}
		return nil, err
	}

	return record, nil
}

// Save inserts the user or overwrites the row with the same id. Unique
// email, username or verification code collisions surface as
// auth.ErrIdentityConflict.
func (u *Users) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	if user == nil {
		return nil, errors.New("repository: nil user")
	}
	if user.Role == "" {
		user.Role = auth.RoleMember
	}

	var (
		saved *auth.User
		err   error
	)

	_, err = u.FindByID(ctx, user.ID)
	switch {
	case err == nil:
		saved, err = u.update(ctx, user)
	case auth.IsError(err, auth.ErrIdentityNotFound):
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		saved, err = u.Repository.CreateTx(ctx, u.db, user)
	}

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, auth.Wrap(err, auth.ErrIdentityConflict)
		}
		return nil, err
	}

	return saved, nil
}

// update writes every column, nil verification fields included
func (u *Users) update(ctx context.Context, user *auth.User) (*auth.User, error) {
	_, err := u.db.NewUpdate().
		Model(user).
		Column("username", "email", "password_hash", "user_role",
			"verification_code", "verification_expires_at", "verified", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns every user, oldest first
func (u *Users) List(ctx context.Context) ([]*auth.User, error) {
	var records []*auth.User
	err := u.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// IsUniqueViolation reports whether err is a unique constraint failure in
// either supported dialect
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if strings.Contains(e.Error(), "UNIQUE constraint failed") {
			return true
		}
	}
	return false
}
