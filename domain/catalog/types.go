// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package catalog defines the types held in the node catalog: the
// local record of the datasets published from this node.
package catalog

import (
	"time"

	"github.com/ncaripsl/esg-publisher/core/publish"
)

// Dataset is a published dataset known to the node catalog.
type Dataset struct {
	Name    string
	Project string
}

// Version is a single published version of a dataset.
type Version struct {
	// Version is the version number, unique within its dataset.
	Version int

	// Name is the fully qualified version name, for example
	// "cmip5.output1.MIROC.v2" for version 2.
	Name string

	// CreatedAt is when the version was published.
	CreatedAt time.Time
}

// Entry locates the serving-layer catalog file for one dataset
// version. Entries are not tied to the dataset record: they must
// remain removable after the dataset itself has been deleted.
type Entry struct {
	DatasetName string
	Version     int

	// Location is the catalog file path relative to the serving root.
	Location string
}

// Event is one record in a dataset's audit trail. The trail outlives
// the dataset rows it describes.
type Event struct {
	DatasetName string
	Version     int
	Kind        publish.EventKind
	CreatedAt   time.Time
}

// Resolution describes how a single unpublication identifier mapped
// onto the node catalog.
type Resolution struct {
	// Name is the catalog dataset name resolved from the identifier.
	Name string

	// Version is the version number requested, or dataset.AllVersions.
	Version int

	// DeleteAll is true when every version of the dataset is being
	// removed rather than a single one.
	DeleteAll bool

	// Dataset is the catalog record for Name, or nil when the catalog
	// has no such dataset. Absence is not an error: the dataset may
	// still exist in the registry or the serving layer.
	Dataset *Dataset

	// Versions holds the versions to operate on, ascending.
	Versions []Version

	// IsLatest is true when the version being removed is the latest
	// one the dataset has.
	IsLatest bool

	// MaxVersion is the highest version number of the dataset, or 0
	// when the dataset is unknown.
	MaxVersion int

	// PreviousVersion is the version number directly below the
	// latest, used to pick the republication candidate when the
	// latest version is removed. It is 0 when the dataset has fewer
	// than two versions.
	PreviousVersion int
}
