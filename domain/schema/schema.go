// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package schema defines the DDL for the node catalog database.
package schema

import (
	"github.com/ncaripsl/esg-publisher/internal/database/schema"
)

// CatalogDDL is used to create the node catalog database.
func CatalogDDL() *schema.Schema {
	patches := []func() schema.Patch{
		datasetSchema,
		datasetVersionSchema,
		datasetVariableSchema,
		datasetStatusSchema,
		datasetEventSchema,
		catalogEntrySchema,
	}

	s := schema.New()
	for _, fn := range patches {
		s.Add(fn())
	}
	return s
}

func datasetSchema() schema.Patch {
	return schema.MakePatch(`
CREATE TABLE dataset (
    name        TEXT NOT NULL PRIMARY KEY,
    project     TEXT
);`[1:])
}

func datasetVersionSchema() schema.Patch {
	return schema.MakePatch(`
CREATE TABLE dataset_version (
    dataset_name    TEXT NOT NULL,
    version         INT NOT NULL,
    -- name is the fully qualified version identifier, e.g.
    -- "cmip5.output1.v2".
    name            TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT(STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW', 'utc')),
    PRIMARY KEY     (dataset_name, version),
    CONSTRAINT      fk_dataset_version_dataset
        FOREIGN KEY (dataset_name)
        REFERENCES  dataset(name)
        ON DELETE CASCADE
);`[1:])
}

func datasetVariableSchema() schema.Patch {
	return schema.MakePatch(`
CREATE TABLE dataset_variable (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset_name    TEXT NOT NULL,
    name            TEXT NOT NULL,
    long_name       TEXT,
    CONSTRAINT      fk_dataset_variable_dataset
        FOREIGN KEY (dataset_name)
        REFERENCES  dataset(name)
        ON DELETE CASCADE
);
CREATE INDEX idx_dataset_variable_dataset
ON dataset_variable (dataset_name);`[1:])
}

func datasetStatusSchema() schema.Patch {
	return schema.MakePatch(`
CREATE TABLE dataset_status (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset_name    TEXT NOT NULL,
    level           TEXT NOT NULL,
    module          TEXT NOT NULL,
    message         TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT(STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW', 'utc')),
    CONSTRAINT      fk_dataset_status_dataset
        FOREIGN KEY (dataset_name)
        REFERENCES  dataset(name)
        ON DELETE CASCADE
);
CREATE INDEX idx_dataset_status_dataset_module
ON dataset_status (dataset_name, module);`[1:])
}

func datasetEventSchema() schema.Patch {
	// Events are an audit trail, so no foreign key back to dataset:
	// the final events of an unpublication outlive the dataset row.
	return schema.MakePatch(`
CREATE TABLE dataset_event (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset_name    TEXT NOT NULL,
    version         INT NOT NULL,
    kind            TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT(STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW', 'utc'))
);
CREATE INDEX idx_dataset_event_dataset
ON dataset_event (dataset_name);`[1:])
}

func catalogEntrySchema() schema.Patch {
	// Serving catalog entries must remain removable after the dataset
	// row has been deleted, so no foreign key here either.
	return schema.MakePatch(`
CREATE TABLE catalog_entry (
    dataset_name    TEXT NOT NULL,
    version         INT NOT NULL,
    location        TEXT NOT NULL,
    PRIMARY KEY     (dataset_name, version)
);`[1:])
}
