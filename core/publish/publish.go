// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package publish defines the publication lifecycle vocabulary shared
// by the registry, serving layer and local catalog phases of an
// unpublication run.
package publish

import (
	"fmt"

	"github.com/juju/errors"
)

// Operation selects the registry call made when a dataset is
// unpublished. The zero value is deliberately invalid so that a
// caller cannot skip the registry phase by accident.
type Operation int

const (
	// OperationDelete removes all registry metadata for the target.
	OperationDelete Operation = 1 + iota

	// OperationRetract withdraws the target from discovery but leaves
	// its registry records in place.
	OperationRetract

	// OperationNone performs no registry call at all.
	OperationNone
)

// Validate returns an error satisfying errors.NotValid if the
// operation is not one of the recognised values.
func (o Operation) Validate() error {
	switch o {
	case OperationDelete, OperationRetract, OperationNone:
		return nil
	}
	return errors.NotValidf("registry operation %d", int(o))
}

// String is used in log and error messages.
func (o Operation) String() string {
	switch o {
	case OperationDelete:
		return "delete"
	case OperationRetract:
		return "retract"
	case OperationNone:
		return "none"
	}
	return fmt.Sprintf("operation-%d", int(o))
}

// EventKind labels an entry in a dataset's lifecycle event log.
type EventKind string

const (
	RegistryDeleteSucceeded  EventKind = "registry-delete-succeeded"
	RegistryDeleteFailed     EventKind = "registry-delete-failed"
	RegistryRetractSucceeded EventKind = "registry-retract-succeeded"
	RegistryRetractFailed    EventKind = "registry-retract-failed"
	ServingEntryRemoved      EventKind = "serving-catalog-entry-removed"
	DatasetDeleted           EventKind = "dataset-deleted"
	VersionDeleted           EventKind = "dataset-version-deleted"
)

// EventKinds returns the event kinds recorded for a successful and a
// failed application of the operation against the registry. Only
// OperationDelete and OperationRetract record events.
func (o Operation) EventKinds() (success, failure EventKind) {
	if o == OperationDelete {
		return RegistryDeleteSucceeded, RegistryDeleteFailed
	}
	return RegistryRetractSucceeded, RegistryRetractFailed
}

// StatusLevel grades a note recorded against a dataset.
type StatusLevel string

const (
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
)

// Module tags status notes recorded by the publication machinery, so
// that they can be cleared without touching notes left by other
// subsystems.
const Module = "publish"
