package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager owns the database handle and vends repositories bound to it
type Manager struct {
	db      *bun.DB
	dialect Dialect
	users   *Users
}

func NewManager(db *bun.DB, dialect Dialect) *Manager {
	return &Manager{
		db:      db,
		dialect: dialect,
		users:   NewUsers(db),
	}
}

// Connect opens dsn, applies migrations and returns a ready manager
func Connect(ctx context.Context, dsn string) (*Manager, error) {
	db, dialect, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewManager(db, dialect), nil
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f with a users repository bound to a transaction
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, users *Users) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			return f(ctx, m.users.withTx(tx))
		})
	}
}

func (m *Manager) Users() *Users {
	return m.users
}

func (m *Manager) Dialect() Dialect {
	return m.dialect
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Close() error {
	return m.db.Close()
}
