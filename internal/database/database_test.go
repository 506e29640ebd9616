// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/ncaripsl/esg-publisher/internal/database"
)

var namespace int64

type txnRunnerSuite struct {
	testing.IsolationSuite

	runner database.TxnRunner
}

var _ = gc.Suite(&txnRunnerSuite{})

func (s *txnRunnerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)

	db, err := database.OpenInMemory(fmt.Sprintf("txnrunner%d", atomic.AddInt64(&namespace, 1)))
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(c *gc.C) { c.Assert(db.Close(), jc.ErrorIsNil) })

	s.runner = database.NewTxnRunner(db)
	err = s.runner.StdTxn(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "CREATE TABLE dataset (name TEXT PRIMARY KEY)")
		return err
	})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *txnRunnerSuite) TestTxnCommit(c *gc.C) {
	stmt, err := sqlair.Prepare("INSERT INTO dataset (name) VALUES ($M.name)", sqlair.M{})
	c.Assert(err, jc.ErrorIsNil)

	err = s.runner.Txn(context.Background(), func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, sqlair.M{"name": "cmip5.output1"}).Run()
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.countDatasets(c), gc.Equals, 1)
}

func (s *txnRunnerSuite) TestTxnRollbackOnError(c *gc.C) {
	stmt, err := sqlair.Prepare("INSERT INTO dataset (name) VALUES ($M.name)", sqlair.M{})
	c.Assert(err, jc.ErrorIsNil)

	err = s.runner.Txn(context.Background(), func(ctx context.Context, tx *sqlair.TX) error {
		if err := tx.Query(ctx, stmt, sqlair.M{"name": "cmip5.output1"}).Run(); err != nil {
			return err
		}
		return errors.New("boom")
	})
	c.Assert(errors.Cause(err), gc.ErrorMatches, "boom")
	c.Check(s.countDatasets(c), gc.Equals, 0)
}

func (s *txnRunnerSuite) TestStdTxnRollbackOnError(c *gc.C) {
	err := s.runner.StdTxn(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO dataset (name) VALUES (?)", "cmip5.output1"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	c.Assert(errors.Cause(err), gc.ErrorMatches, "boom")
	c.Check(s.countDatasets(c), gc.Equals, 0)
}

func (s *txnRunnerSuite) countDatasets(c *gc.C) int {
	var count int
	err := s.runner.StdTxn(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM dataset").Scan(&count)
	})
	c.Assert(err, jc.ErrorIsNil)
	return count
}
