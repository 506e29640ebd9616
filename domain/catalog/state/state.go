// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package state implements persistence for the node catalog over the
// catalog database.
package state

import (
	"context"

	"github.com/canonical/sqlair"
	"github.com/juju/collections/transform"
	"github.com/juju/errors"

	"github.com/ncaripsl/esg-publisher/core/publish"
	"github.com/ncaripsl/esg-publisher/domain"
	"github.com/ncaripsl/esg-publisher/domain/catalog"
	catalogerrors "github.com/ncaripsl/esg-publisher/domain/catalog/errors"
	"github.com/ncaripsl/esg-publisher/internal/database"
)

// State implements the catalog domain state.
type State struct {
	*domain.StateBase
}

// NewState returns a new State instance.
func NewState(factory database.TxnRunnerFactory) *State {
	return &State{
		StateBase: domain.NewStateBase(factory),
	}
}

// GetDataset returns the catalog record for the named dataset,
// or an error satisfying catalogerrors.DatasetNotFound if there is
// none.
func (s *State) GetDataset(ctx context.Context, name string) (catalog.Dataset, error) {
	db, err := s.DB()
	if err != nil {
		return catalog.Dataset{}, errors.Trace(err)
	}

	row := dbDataset{Name: name}

	stmt, err := s.Prepare(`
SELECT &dbDataset.*
FROM   dataset
WHERE  name = $dbDataset.name`, row)
	if err != nil {
		return catalog.Dataset{}, errors.Annotate(err, "preparing select dataset statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, row).Get(&row)
	})
	if err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return catalog.Dataset{}, catalogerrors.DatasetNotFound
		}
		return catalog.Dataset{}, errors.Annotatef(err, "retrieving dataset %s", name)
	}
	return catalog.Dataset{Name: row.Name, Project: row.Project.String}, nil
}

// ListVersions returns the published versions of the named dataset in
// ascending version order. A dataset with no versions yields an empty
// result, not an error.
func (s *State) ListVersions(ctx context.Context, name string) ([]catalog.Version, error) {
	db, err := s.DB()
	if err != nil {
		return nil, errors.Trace(err)
	}

	ident := dbDatasetName{Name: name}

	stmt, err := s.Prepare(`
SELECT   (version, name, created_at) AS (&dbVersion.*)
FROM     dataset_version
WHERE    dataset_name = $dbDatasetName.name
ORDER BY version`, dbVersion{}, ident)
	if err != nil {
		return nil, errors.Annotate(err, "preparing select versions statement")
	}

	var rows []dbVersion
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt, ident).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Annotatef(err, "listing versions of dataset %s", name)
	}

	return transform.Slice(rows, func(row dbVersion) catalog.Version {
		return catalog.Version{
			Version:   row.Version,
			Name:      row.Name,
			CreatedAt: row.CreatedAt,
		}
	}), nil
}

// AppendEvent appends an event to the named dataset's audit trail.
func (s *State) AppendEvent(ctx context.Context, name string, version int, kind publish.EventKind) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	event := dbEvent{DatasetName: name, Version: version, Kind: string(kind)}

	stmt, err := s.Prepare(`
INSERT INTO dataset_event (dataset_name, version, kind)
VALUES ($dbEvent.dataset_name, $dbEvent.version, $dbEvent.kind)`, event)
	if err != nil {
		return errors.Annotate(err, "preparing insert event statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, event).Run()
	})
	return errors.Annotatef(err, "recording %s event for dataset %s", kind, name)
}

// ListEvents returns the audit trail of the named dataset, oldest
// first.
func (s *State) ListEvents(ctx context.Context, name string) ([]catalog.Event, error) {
	db, err := s.DB()
	if err != nil {
		return nil, errors.Trace(err)
	}

	ident := dbDatasetName{Name: name}

	stmt, err := s.Prepare(`
SELECT   (dataset_name, version, kind, created_at) AS (&dbEvent.*)
FROM     dataset_event
WHERE    dataset_name = $dbDatasetName.name
ORDER BY id`, dbEvent{}, ident)
	if err != nil {
		return nil, errors.Annotate(err, "preparing select events statement")
	}

	var rows []dbEvent
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt, ident).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Annotatef(err, "listing events of dataset %s", name)
	}

	return transform.Slice(rows, func(row dbEvent) catalog.Event {
		return catalog.Event{
			DatasetName: row.DatasetName,
			Version:     row.Version,
			Kind:        publish.EventKind(row.Kind),
			CreatedAt:   row.CreatedAt,
		}
	}), nil
}

// AddStatus records a status message against the named dataset.
func (s *State) AddStatus(ctx context.Context, name string, level publish.StatusLevel, module, message string) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	status := dbStatus{DatasetName: name, Level: string(level), Module: module, Message: message}

	stmt, err := s.Prepare(`
INSERT INTO dataset_status (dataset_name, level, module, message)
VALUES ($dbStatus.dataset_name, $dbStatus.level, $dbStatus.module, $dbStatus.message)`, status)
	if err != nil {
		return errors.Annotate(err, "preparing insert status statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, status).Run()
	})
	return errors.Annotatef(err, "recording status for dataset %s", name)
}

// ClearStatus removes all status messages recorded against the named
// dataset by the given module.
func (s *State) ClearStatus(ctx context.Context, name, module string) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	status := dbStatus{DatasetName: name, Module: module}

	stmt, err := s.Prepare(`
DELETE FROM dataset_status
WHERE  dataset_name = $dbStatus.dataset_name
AND    module = $dbStatus.module`, status)
	if err != nil {
		return errors.Annotate(err, "preparing delete status statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, status).Run()
	})
	return errors.Annotatef(err, "clearing status of dataset %s", name)
}

// GetEntry returns the serving catalog entry for the given dataset
// version, or an error satisfying catalogerrors.EntryNotFound if there
// is none.
func (s *State) GetEntry(ctx context.Context, name string, version int) (catalog.Entry, error) {
	db, err := s.DB()
	if err != nil {
		return catalog.Entry{}, errors.Trace(err)
	}

	entry := dbEntry{DatasetName: name, Version: version}

	stmt, err := s.Prepare(`
SELECT &dbEntry.*
FROM   catalog_entry
WHERE  dataset_name = $dbEntry.dataset_name
AND    version = $dbEntry.version`, entry)
	if err != nil {
		return catalog.Entry{}, errors.Annotate(err, "preparing select entry statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, entry).Get(&entry)
	})
	if err != nil {
		if errors.Is(err, sqlair.ErrNoRows) {
			return catalog.Entry{}, catalogerrors.EntryNotFound
		}
		return catalog.Entry{}, errors.Annotatef(err, "retrieving catalog entry for %s version %d", name, version)
	}
	return catalog.Entry{
		DatasetName: entry.DatasetName,
		Version:     entry.Version,
		Location:    entry.Location,
	}, nil
}

// RemoveEntry deletes the serving catalog entry for the given dataset
// version, recording an event of the input kind in the same
// transaction. An empty kind records no event. Removing an absent
// entry is a no-op.
func (s *State) RemoveEntry(ctx context.Context, name string, version int, kind publish.EventKind) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	entry := dbEntry{DatasetName: name, Version: version}

	deleteStmt, err := s.Prepare(`
DELETE FROM catalog_entry
WHERE  dataset_name = $dbEntry.dataset_name
AND    version = $dbEntry.version`, entry)
	if err != nil {
		return errors.Annotate(err, "preparing delete entry statement")
	}

	event := dbEvent{DatasetName: name, Version: version, Kind: string(kind)}

	eventStmt, err := s.Prepare(`
INSERT INTO dataset_event (dataset_name, version, kind)
VALUES ($dbEvent.dataset_name, $dbEvent.version, $dbEvent.kind)`, event)
	if err != nil {
		return errors.Annotate(err, "preparing insert event statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		if err := tx.Query(ctx, deleteStmt, entry).Run(); err != nil {
			return errors.Trace(err)
		}
		if kind == "" {
			return nil
		}
		return errors.Trace(tx.Query(ctx, eventStmt, event).Run())
	})
	return errors.Annotatef(err, "removing catalog entry for %s version %d", name, version)
}

// DeleteDataset deletes the named dataset and its dependent records,
// appending a dataset-deleted event carrying the input version in the
// same transaction. Serving catalog entries are left to the serving
// layer to remove.
func (s *State) DeleteDataset(ctx context.Context, name string, eventVersion int) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	ident := dbDatasetName{Name: name}

	childStmts := make([]*sqlair.Statement, 0, 3)
	for _, query := range []string{
		"DELETE FROM dataset_status WHERE dataset_name = $dbDatasetName.name",
		"DELETE FROM dataset_variable WHERE dataset_name = $dbDatasetName.name",
		"DELETE FROM dataset_version WHERE dataset_name = $dbDatasetName.name",
	} {
		stmt, err := s.Prepare(query, ident)
		if err != nil {
			return errors.Annotate(err, "preparing delete children statement")
		}
		childStmts = append(childStmts, stmt)
	}

	datasetStmt, err := s.Prepare(`
DELETE FROM dataset
WHERE  name = $dbDatasetName.name`, ident)
	if err != nil {
		return errors.Annotate(err, "preparing delete dataset statement")
	}

	event := dbEvent{DatasetName: name, Version: eventVersion, Kind: string(publish.DatasetDeleted)}

	eventStmt, err := s.Prepare(`
INSERT INTO dataset_event (dataset_name, version, kind)
VALUES ($dbEvent.dataset_name, $dbEvent.version, $dbEvent.kind)`, event)
	if err != nil {
		return errors.Annotate(err, "preparing insert event statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		for _, stmt := range childStmts {
			if err := tx.Query(ctx, stmt, ident).Run(); err != nil {
				return errors.Trace(err)
			}
		}
		if err := tx.Query(ctx, datasetStmt, ident).Run(); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(tx.Query(ctx, eventStmt, event).Run())
	})
	return errors.Annotatef(err, "deleting dataset %s", name)
}

// DeleteVersion deletes a single version of the named dataset,
// appending a version-deleted event in the same transaction. When
// dropVariables is true the dataset's variable records are deleted
// too, as they describe only the latest version.
func (s *State) DeleteVersion(ctx context.Context, name string, version int, dropVariables bool) error {
	db, err := s.DB()
	if err != nil {
		return errors.Trace(err)
	}

	row := dbVersion{DatasetName: name, Version: version}

	versionStmt, err := s.Prepare(`
DELETE FROM dataset_version
WHERE  dataset_name = $dbVersion.dataset_name
AND    version = $dbVersion.version`, row)
	if err != nil {
		return errors.Annotate(err, "preparing delete version statement")
	}

	ident := dbDatasetName{Name: name}

	variableStmt, err := s.Prepare(
		"DELETE FROM dataset_variable WHERE dataset_name = $dbDatasetName.name", ident)
	if err != nil {
		return errors.Annotate(err, "preparing delete variables statement")
	}

	event := dbEvent{DatasetName: name, Version: version, Kind: string(publish.VersionDeleted)}

	eventStmt, err := s.Prepare(`
INSERT INTO dataset_event (dataset_name, version, kind)
VALUES ($dbEvent.dataset_name, $dbEvent.version, $dbEvent.kind)`, event)
	if err != nil {
		return errors.Annotate(err, "preparing insert event statement")
	}

	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		if err := tx.Query(ctx, versionStmt, row).Run(); err != nil {
			return errors.Trace(err)
		}
		if dropVariables {
			if err := tx.Query(ctx, variableStmt, ident).Run(); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(tx.Query(ctx, eventStmt, event).Run())
	})
	return errors.Annotatef(err, "deleting version %d of dataset %s", version, name)
}
