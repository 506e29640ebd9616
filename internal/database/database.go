// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package database holds the plumbing between the catalog state layer
// and its backing SQLite database: connection helpers and the
// transaction runner handed to domain state via a factory.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	_ "github.com/mattn/go-sqlite3"
)

var logger = loggo.GetLogger("esgpublisher.database")

// TxnRunner executes functions against the node catalog database,
// each within its own transaction.
type TxnRunner interface {
	// Txn runs the input function against the database inside a
	// transaction built from the input context, using sqlair
	// expressions. The transaction is committed iff the function
	// returns nil.
	Txn(context.Context, func(context.Context, *sqlair.TX) error) error

	// StdTxn is Txn for plain database/sql statements.
	StdTxn(context.Context, func(context.Context, *sql.Tx) error) error
}

// TxnRunnerFactory defers acquisition of a TxnRunner, so that state
// types can be constructed before the database has been opened.
type TxnRunnerFactory func() (TxnRunner, error)

// NewTxnRunnerFactory returns a factory that always vends the input
// runner. It is a convenience for composition roots and tests that
// hold the runner up front.
func NewTxnRunnerFactory(runner TxnRunner) TxnRunnerFactory {
	return func() (TxnRunner, error) {
		return runner, nil
	}
}

// NewTxnRunner wraps the input database handle in a TxnRunner.
func NewTxnRunner(db *sql.DB) TxnRunner {
	return &txnRunner{db: sqlair.NewDB(db)}
}

type txnRunner struct {
	db *sqlair.DB
}

// Txn is part of the TxnRunner interface.
func (r *txnRunner) Txn(ctx context.Context, fn func(context.Context, *sqlair.TX) error) error {
	tx, err := r.db.Begin(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warningf("failed to roll back transaction: %v", rbErr)
		}
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

// StdTxn is part of the TxnRunner interface.
func (r *txnRunner) StdTxn(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	tx, err := r.db.PlainDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warningf("failed to roll back transaction: %v", rbErr)
		}
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

// Open opens the node catalog database at path, creating the file on
// first use. Foreign key enforcement is switched on; writers block for
// up to the busy timeout rather than failing immediately.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000", url.PathEscape(path)))
	if err != nil {
		return nil, errors.Annotatef(err, "opening node catalog database at %q", path)
	}
	return db, nil
}

// OpenInMemory returns a fresh in-memory database. The namespace keeps
// separately opened databases from sharing a cache, so concurrently
// running test suites do not see each other's tables.
func OpenInMemory(namespace string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", namespace))
	if err != nil {
		return nil, errors.Trace(err)
	}
	// A shared-cache in-memory database lives only as long as one
	// connection is open. Pinning a single connection keeps it alive
	// for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	return db, nil
}
