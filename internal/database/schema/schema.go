// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package schema applies versioned DDL patches to a database,
// recording each applied patch so that Ensure is safe to run on every
// start-up.
package schema

import (
	"context"
	"database/sql"

	"github.com/juju/errors"

	"github.com/ncaripsl/esg-publisher/internal/database"
)

// Patch is a single DDL statement together with its arguments.
type Patch struct {
	statement string
	args      []any
}

// MakePatch returns a patch that runs the input statement with the
// input arguments.
func MakePatch(statement string, args ...any) Patch {
	return Patch{statement: statement, args: args}
}

// Schema is an ordered collection of patches. Patches already recorded
// in the database are never re-run; new ones are applied in order.
type Schema struct {
	patches []Patch
}

// New returns a schema initialised with the input patches.
func New(patches ...Patch) *Schema {
	return &Schema{patches: patches}
}

// Add appends patches to the schema.
func (s *Schema) Add(patches ...Patch) {
	s.patches = append(s.patches, patches...)
}

// Len returns the number of patches held by the schema.
func (s *Schema) Len() int {
	return len(s.patches)
}

// ChangeSet describes the schema versions either side of an Ensure
// call.
type ChangeSet struct {
	Current, Post int
}

// Ensure brings the database up to date with the schema, applying any
// patches beyond the recorded version inside a single transaction. It
// returns the versions before and after.
func (s *Schema) Ensure(ctx context.Context, runner database.TxnRunner) (ChangeSet, error) {
	current := -1
	err := runner.StdTxn(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureSchemaTable(ctx, tx); err != nil {
			return errors.Annotate(err, "creating schema table")
		}

		var err error
		if current, err = queryCurrentVersion(ctx, tx); err != nil {
			return errors.Trace(err)
		}
		if current > len(s.patches) {
			return errors.Errorf(
				"schema version %d is ahead of the supplied patches (%d)", current, len(s.patches))
		}

		for i, patch := range s.patches[current:] {
			version := current + i + 1
			if _, err := tx.ExecContext(ctx, patch.statement, patch.args...); err != nil {
				return errors.Annotatef(err, "applying patch %d", version)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema (version) VALUES (?)", version,
			); err != nil {
				return errors.Annotatef(err, "recording patch %d", version)
			}
		}
		return nil
	})
	if err != nil {
		return ChangeSet{}, errors.Trace(err)
	}
	return ChangeSet{Current: current, Post: len(s.patches)}, nil
}

func ensureSchemaTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema (
    version     INT PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return errors.Trace(err)
}

func queryCurrentVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var current int
	row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema")
	if err := row.Scan(&current); err != nil {
		return -1, errors.Annotate(err, "querying schema version")
	}
	return current, nil
}
