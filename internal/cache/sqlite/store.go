// Package sqlite is the concrete persistence layer backing both the
// artifact registry (internal/registry) and the cache/index projections:
// the pure-Go ncruces/go-sqlite3 driver, a New(ctx, dbPath) constructor,
// and a CREATE-TABLE-IF-NOT-EXISTS baseline schema plus incremental
// migrations.
//
// Rather than a separate Transaction interface and RunInTransaction
// helper, this store folds transactions into the Store type itself:
// WithTx clones the Store with its querier bound to a *sql.Tx instead of
// the *sql.DB, so every method works unmodified whether or not it is
// running inside a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/skillmeat/skillmeat/internal/errs"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting every Store
// method run unchanged inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed implementation of registry.Store plus the
// cache/index methods used by the collection, composite, deployset and
// sync packages.
type Store struct {
	db   *sql.DB
	q    querier
	path string
}

// New opens (creating if necessary) the SQLite database at dbPath and
// applies the baseline schema and any pending migrations.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // ncruces/go-sqlite3 connections are not shareable across goroutines

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.TransientIO, "apply baseline schema", err)
	}

	s := &Store{db: db, q: db, path: dbPath}
	if err := s.applyMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle. No-op on a Store
// returned from WithTx.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, inTx := s.q.(*txQuerier); inTx {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path the store was opened against.
func (s *Store) Path() string {
	return s.path
}

// WithTx runs fn against a Store whose queries participate in a single
// BEGIN IMMEDIATE transaction, committing on success and rolling back on
// error or panic, so fn's writes land all together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if _, execErr := s.db.ExecContext(ctx, "BEGIN IMMEDIATE"); execErr != nil {
		return errs.Wrap(errs.TransientIO, "begin immediate transaction", execErr)
	}
	tx := &Store{db: s.db, q: &txQuerier{db: s.db}, path: s.path}

	defer func() {
		if p := recover(); p != nil {
			s.db.ExecContext(ctx, "ROLLBACK")
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if _, rbErr := s.db.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if _, execErr := s.db.ExecContext(ctx, "COMMIT"); execErr != nil {
		return errs.Wrap(errs.TransientIO, "commit transaction", execErr)
	}
	return nil
}

// txQuerier is a thin querier that runs directly against db's current
// connection-level transaction state (BEGIN IMMEDIATE / COMMIT /
// ROLLBACK issued as raw statements rather than via database/sql's own
// *sql.Tx, since SetMaxOpenConns(1) guarantees a single underlying
// connection is in play for the lifetime of the process).
type txQuerier struct {
	db *sql.DB
}

func (t *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.db.ExecContext(ctx, query, args...)
}

func (t *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.db.QueryContext(ctx, query, args...)
}

func (t *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.db.QueryRowContext(ctx, query, args...)
}
