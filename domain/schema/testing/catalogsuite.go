// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing provides a suite pre-populated with the catalog
// schema for use by state tests.
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/ncaripsl/esg-publisher/domain/schema"
	"github.com/ncaripsl/esg-publisher/internal/database"
)

var namespace int64

// CatalogSuite is used to provide an in-memory catalog database to
// tests, initialised with the catalog schema.
type CatalogSuite struct {
	testing.IsolationSuite

	db     *sql.DB
	runner database.TxnRunner
}

// SetUpTest creates a fresh database and applies the catalog DDL.
func (s *CatalogSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)

	db, err := database.OpenInMemory(fmt.Sprintf("catalog%d", atomic.AddInt64(&namespace, 1)))
	c.Assert(err, jc.ErrorIsNil)
	s.db = db
	s.AddCleanup(func(c *gc.C) { c.Assert(db.Close(), jc.ErrorIsNil) })

	s.runner = database.NewTxnRunner(db)
	_, err = schema.CatalogDDL().Ensure(context.Background(), s.runner)
	c.Assert(err, jc.ErrorIsNil)
}

// DB returns the raw database handle, for tests that seed or inspect
// rows directly.
func (s *CatalogSuite) DB() *sql.DB {
	return s.db
}

// TxnRunner returns a runner attached to the catalog database.
func (s *CatalogSuite) TxnRunner() database.TxnRunner {
	return s.runner
}

// TxnRunnerFactory returns a factory vending the suite's runner.
func (s *CatalogSuite) TxnRunnerFactory() database.TxnRunnerFactory {
	return database.NewTxnRunnerFactory(s.runner)
}

// Exec runs the input statement against the catalog database, failing
// the test on error.
func (s *CatalogSuite) Exec(c *gc.C, stmt string, args ...any) {
	err := s.runner.StdTxn(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt, args...)
		return err
	})
	c.Assert(err, jc.ErrorIsNil)
}
