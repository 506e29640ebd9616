// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service implements the node catalog operations used during
// unpublication: resolving identifiers against the catalog and
// removing the catalog's own records.
package service

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/kr/pretty"

	"github.com/ncaripsl/esg-publisher/core/dataset"
	"github.com/ncaripsl/esg-publisher/core/publish"
	"github.com/ncaripsl/esg-publisher/domain/catalog"
	catalogerrors "github.com/ncaripsl/esg-publisher/domain/catalog/errors"
)

var logger = loggo.GetLogger("esgpublisher.catalog.service")

// State describes the persistence layer used by the service.
type State interface {
	// GetDataset returns the catalog record for the named dataset, or
	// an error satisfying catalogerrors.DatasetNotFound.
	GetDataset(ctx context.Context, name string) (catalog.Dataset, error)

	// ListVersions returns the published versions of the named
	// dataset, ascending.
	ListVersions(ctx context.Context, name string) ([]catalog.Version, error)

	// AppendEvent appends an event to the dataset's audit trail.
	AppendEvent(ctx context.Context, name string, version int, kind publish.EventKind) error

	// ListEvents returns the dataset's audit trail, oldest first.
	ListEvents(ctx context.Context, name string) ([]catalog.Event, error)

	// AddStatus records a status message against the dataset.
	AddStatus(ctx context.Context, name string, level publish.StatusLevel, module, message string) error

	// ClearStatus removes the dataset's status messages recorded by
	// the given module.
	ClearStatus(ctx context.Context, name, module string) error

	// GetEntry returns the serving catalog entry for a dataset
	// version, or an error satisfying catalogerrors.EntryNotFound.
	GetEntry(ctx context.Context, name string, version int) (catalog.Entry, error)

	// RemoveEntry deletes the serving catalog entry for a dataset
	// version, recording an event of the input kind unless it is
	// empty.
	RemoveEntry(ctx context.Context, name string, version int, kind publish.EventKind) error

	// DeleteDataset deletes the dataset and its dependent records,
	// recording a deletion event carrying the input version.
	DeleteDataset(ctx context.Context, name string, eventVersion int) error

	// DeleteVersion deletes a single version of the dataset, dropping
	// the dataset's variable records when asked to.
	DeleteVersion(ctx context.Context, name string, version int, dropVariables bool) error
}

// Service provides the node catalog operations used during
// unpublication.
type Service struct {
	st State
}

// NewService returns a new Service wrapping the input state.
func NewService(st State) *Service {
	return &Service{st: st}
}

// Resolve maps an unpublication identifier onto the node catalog.
//
// When composite is true the identifier has the form
// "master_id.version|data_node" as used by the REST publication
// services: the version encoded in the identifier then replaces the
// input version, and a missing data node draws a warning. A malformed
// composite identifier is not fatal; the identifier is used as the
// dataset name unchanged.
//
// A dataset absent from the catalog is not an error, since it may
// still exist in the registry or the serving layer; the returned
// resolution simply carries a nil Dataset. Removal of a dataset's only
// remaining version is widened to removal of the whole dataset.
func (s *Service) Resolve(ctx context.Context, identifier string, version int, deleteAll, composite bool) (catalog.Resolution, error) {
	name := identifier
	if composite {
		rest, node := dataset.SplitNode(identifier)
		if node == "" {
			logger.Warningf("dataset %s: composite identifiers should have the form dataset_id|data_node", identifier)
		}
		parsedName, parsedVersion, err := dataset.ParseVersionName(rest)
		if err != nil {
			logger.Warningf("cannot parse a version from dataset identifier %q", identifier)
			name = rest
		} else {
			name, version = parsedName, parsedVersion
		}
	}

	res := catalog.Resolution{
		Name:      name,
		Version:   version,
		DeleteAll: deleteAll || version == dataset.AllVersions,
	}

	dset, err := s.st.GetDataset(ctx, name)
	if errors.Is(err, catalogerrors.DatasetNotFound) {
		return res, nil
	} else if err != nil {
		return catalog.Resolution{}, errors.Trace(err)
	}
	res.Dataset = &dset

	versions, err := s.st.ListVersions(ctx, name)
	if err != nil {
		return catalog.Resolution{}, errors.Trace(err)
	}
	if n := len(versions); n > 0 {
		res.MaxVersion = versions[n-1].Version
		if n > 1 {
			res.PreviousVersion = versions[n-2].Version
		}
	}

	// The requested version; the latest when all versions are
	// addressed.
	var requested *catalog.Version
	if version == dataset.AllVersions {
		if len(versions) > 0 {
			requested = &versions[len(versions)-1]
		}
	} else {
		for i := range versions {
			if versions[i].Version == version {
				requested = &versions[i]
				break
			}
		}
	}
	if requested == nil {
		logger.Warningf("version %d of dataset %s not found", version, name)
	} else {
		res.IsLatest = requested.Version == res.MaxVersion
	}

	// If this is the only version, remove the entire dataset.
	res.DeleteAll = res.DeleteAll || (requested != nil && len(versions) == 1)

	if res.DeleteAll {
		res.Versions = versions
	} else if requested != nil {
		res.Versions = []catalog.Version{*requested}
	}

	logger.Tracef("resolved %q: %s", identifier, pretty.Sprint(res))
	return res, nil
}

// DeleteRecords removes the catalog's own records for a resolved
// unpublication target: the whole dataset when the resolution covers
// every version, otherwise the single resolved version. When the
// latest version of a dataset is removed and republish is true, the
// identity of the version to republish in its place is returned.
// Unknown datasets and resolutions with nothing to remove are no-ops.
func (s *Service) DeleteRecords(ctx context.Context, res catalog.Resolution, republish bool) (*dataset.ID, error) {
	if res.Dataset == nil {
		return nil, nil
	}

	if res.DeleteAll {
		logger.Infof("deleting existing dataset: %s", res.Name)
		return nil, errors.Trace(s.st.DeleteDataset(ctx, res.Name, res.MaxVersion))
	}

	if len(res.Versions) == 0 {
		return nil, nil
	}
	version := res.Versions[0]

	// If necessary, republish the most recent version below this one.
	var candidate *dataset.ID
	if res.IsLatest && republish && res.PreviousVersion > 0 {
		candidate = &dataset.ID{Name: res.Name, Version: res.PreviousVersion}
	}

	logger.Infof("deleting existing dataset version: %s (version %d)", res.Name, version.Version)
	if err := s.st.DeleteVersion(ctx, res.Name, version.Version, res.IsLatest); err != nil {
		return nil, errors.Trace(err)
	}
	return candidate, nil
}

// Entry returns the serving catalog entry for a dataset version, or an
// error satisfying catalogerrors.EntryNotFound.
func (s *Service) Entry(ctx context.Context, name string, version int) (catalog.Entry, error) {
	entry, err := s.st.GetEntry(ctx, name, version)
	return entry, errors.Trace(err)
}

// RemoveEntry deletes the serving catalog entry for a dataset version.
// When recordEvent is true, an entry-removed event is appended to the
// dataset's audit trail in the same transaction.
func (s *Service) RemoveEntry(ctx context.Context, name string, version int, recordEvent bool) error {
	kind := publish.EventKind("")
	if recordEvent {
		kind = publish.ServingEntryRemoved
	}
	return errors.Trace(s.st.RemoveEntry(ctx, name, version, kind))
}

// RecordEvent appends an event to the named dataset's audit trail.
func (s *Service) RecordEvent(ctx context.Context, name string, version int, kind publish.EventKind) error {
	return errors.Trace(s.st.AppendEvent(ctx, name, version, kind))
}

// Events returns the audit trail of the named dataset, oldest first.
func (s *Service) Events(ctx context.Context, name string) ([]catalog.Event, error) {
	events, err := s.st.ListEvents(ctx, name)
	return events, errors.Trace(err)
}

// RecordWarning records a publication error against the named dataset.
func (s *Service) RecordWarning(ctx context.Context, name, message string) error {
	return errors.Trace(s.st.AddStatus(ctx, name, publish.StatusError, publish.Module, message))
}

// ClearWarnings removes the publication status messages previously
// recorded against the named dataset.
func (s *Service) ClearWarnings(ctx context.Context, name string) error {
	return errors.Trace(s.st.ClearStatus(ctx, name, publish.Module))
}
