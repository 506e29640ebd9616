// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package domain holds shared plumbing for the catalog domain
// packages: the base type embedded by state implementations.
package domain

import (
	"sync"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"

	"github.com/ncaripsl/esg-publisher/internal/database"
)

// StateBase defines a base struct for requesting a database. This will
// cache the prepared statements so that they are only prepared once per
// query.
type StateBase struct {
	mu    sync.Mutex
	getDB database.TxnRunnerFactory

	// statements is a cache of sqlair statements keyed on the query
	// text.
	statements map[string]*sqlair.Statement
}

// NewStateBase returns a new StateBase.
func NewStateBase(getDB database.TxnRunnerFactory) *StateBase {
	return &StateBase{
		getDB:      getDB,
		statements: make(map[string]*sqlair.Statement),
	}
}

// DB returns the database for a given state.
func (st *StateBase) DB() (database.TxnRunner, error) {
	if st.getDB == nil {
		return nil, errors.New("nil getDB")
	}
	db, err := st.getDB()
	return db, errors.Annotate(err, "invoking getDB")
}

// Prepare prepares the given query on the types supplied, caching the
// result so that the same query text is only ever prepared once.
func (st *StateBase) Prepare(query string, typeSamples ...any) (*sqlair.Statement, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if stmt, ok := st.statements[query]; ok {
		return stmt, nil
	}
	stmt, err := sqlair.Prepare(query, typeSamples...)
	if err != nil {
		return nil, errors.Annotatef(err, "preparing %q", query)
	}
	st.statements[query] = stmt
	return stmt, nil
}
