// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"database/sql"
	"time"
)

// dbDataset is a row from the dataset table.
type dbDataset struct {
	Name    string         `db:"name"`
	Project sql.NullString `db:"project"`
}

// dbDatasetName binds a dataset name query argument.
type dbDatasetName struct {
	Name string `db:"name"`
}

// dbVersion is a row from the dataset_version table.
type dbVersion struct {
	DatasetName string    `db:"dataset_name"`
	Version     int       `db:"version"`
	Name        string    `db:"name"`
	CreatedAt   time.Time `db:"created_at"`
}

// dbEntry is a row from the catalog_entry table.
type dbEntry struct {
	DatasetName string `db:"dataset_name"`
	Version     int    `db:"version"`
	Location    string `db:"location"`
}

// dbEvent is a row from the dataset_event table.
type dbEvent struct {
	DatasetName string    `db:"dataset_name"`
	Version     int       `db:"version"`
	Kind        string    `db:"kind"`
	CreatedAt   time.Time `db:"created_at"`
}

// dbStatus is a row from the dataset_status table.
type dbStatus struct {
	DatasetName string `db:"dataset_name"`
	Level       string `db:"level"`
	Module      string `db:"module"`
	Message     string `db:"message"`
}
