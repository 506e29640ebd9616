// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package publish coordinates the removal of published datasets from
// the places their metadata lives: the federation registry, the
// serving layer and the node's own catalog. Each of those can fail
// independently, so the coordinator runs them as separate phases over
// a batch of requests and keeps going wherever a failure is known to
// be contained to a single target.
package publish

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/ncaripsl/esg-publisher/core/dataset"
	corepublish "github.com/ncaripsl/esg-publisher/core/publish"
	"github.com/ncaripsl/esg-publisher/domain/catalog"
	"github.com/ncaripsl/esg-publisher/registry"
)

var logger = loggo.GetLogger("esgpublisher.publish")

// CatalogService exposes the node catalog operations the coordinator
// drives.
type CatalogService interface {
	// Resolve maps a request identifier onto the catalog's view of
	// the dataset: which versions are targeted, whether the whole
	// dataset is, and what becomes latest afterwards. Absence of the
	// dataset or version is not an error.
	Resolve(ctx context.Context, identifier string, version int, deleteAll, composite bool) (catalog.Resolution, error)

	// DeleteRecords removes the catalog records covered by the
	// resolution, returning the version to republish as the new
	// latest when there is one and republish was requested.
	DeleteRecords(ctx context.Context, res catalog.Resolution, republish bool) (*dataset.ID, error)

	// RecordEvent appends an event to the dataset's audit trail.
	RecordEvent(ctx context.Context, name string, version int, kind corepublish.EventKind) error

	// RecordWarning records an error-level publication status message
	// against the dataset.
	RecordWarning(ctx context.Context, name, message string) error

	// ClearWarnings removes the dataset's previously recorded
	// publication status messages.
	ClearWarnings(ctx context.Context, name string) error
}

// ServingPruner removes the serving layer presence of targeted
// dataset versions.
type ServingPruner interface {
	// Prune removes the catalog files and entry records for the
	// given versions of a dataset.
	Prune(ctx context.Context, name string, versions []int) error

	// Finalize regenerates the serving layer's aggregate index and
	// optionally reinitializes the discovery service, once per batch.
	Finalize(ctx context.Context, reinitDiscovery bool) error
}

// Config holds the configuration and dependencies for an Unpublisher.
type Config struct {
	// Catalog holds the node catalog service.
	Catalog CatalogService

	// Pruner holds the serving layer pruner, or nil when no serving
	// root is configured. Runs cannot enable the serving phase
	// without one.
	Pruner ServingPruner

	// Registry holds the connection configuration for the publication
	// services. A registry client is only constructed for runs whose
	// operation calls for one.
	Registry registry.Config

	// NewRegistry constructs the registry client for a run.
	NewRegistry func(registry.Config) (registry.DeletionService, error)

	// DatasetGranularity expresses registry deletions at dataset
	// granularity: one call per dataset using its canonical name.
	// When false, one call is made per targeted version.
	DatasetGranularity bool
}

// Validate returns an error if the config cannot be expected to drive
// a functional Unpublisher.
func (config Config) Validate() error {
	if config.Catalog == nil {
		return errors.NotValidf("nil Catalog")
	}
	if config.NewRegistry == nil {
		return errors.NotValidf("nil NewRegistry")
	}
	return nil
}

// Params control a single unpublication run.
type Params struct {
	// Operation selects the registry call made for each target.
	// OperationNone skips the registry phase entirely.
	Operation corepublish.Operation

	// Serving enables the serving layer phase.
	Serving bool

	// Discovery reinitializes the discovery service after the serving
	// layer phase.
	Discovery bool

	// LocalDelete enables deletion of the node catalog records.
	LocalDelete bool

	// DeleteAll forces deletion of every version of each dataset.
	DeleteAll bool

	// Republish asks the run to report which versions become latest
	// once the targeted ones are gone.
	Republish bool

	// CompositeIDs marks the request identifiers as composite
	// publication identifiers of the form dataset_id|data_node.
	CompositeIDs bool

	// Progress, when non-nil, receives monotonically increasing
	// values between Start and End as the run advances. It never
	// affects control flow.
	Progress func(float64)

	// Start and End bound the values reported to Progress.
	Start float64
	End   float64
}

// Result reports what an unpublication run did.
type Result struct {
	// Outcomes maps each request identifier to the event kind
	// recorded for it by the registry phase. Identifiers that never
	// resolved to an actionable registry target are absent.
	Outcomes map[string]corepublish.EventKind

	// Republish lists the versions that become latest after the run,
	// in request order. It is non-nil only when Params.Republish was
	// set.
	Republish []dataset.ID
}

// Unpublisher removes published datasets from the registry, the
// serving layer and the node catalog.
type Unpublisher struct {
	config Config
}

// NewUnpublisher returns an Unpublisher backed by config.
func NewUnpublisher(config Config) (*Unpublisher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Unpublisher{config: config}, nil
}

// Run unpublishes the requested datasets. Requests name a dataset, or
// one version of it, or every version when the version number is
// dataset.AllVersions. All requests are resolved against the node
// catalog up front; the registry, serving layer and local deletion
// phases then each make one pass over the batch, reusing the
// resolutions.
//
// A registry rejection of one target is recorded and does not disturb
// the rest of the batch. Run only returns an error for conditions
// that poison the whole run: an unrecognized operation, a failure to
// reach the registry at all, or a node catalog failure.
func (u *Unpublisher) Run(ctx context.Context, requests []dataset.ID, params Params) (Result, error) {
	var result Result
	if err := params.Operation.Validate(); err != nil {
		return result, errors.Trace(err)
	}
	if params.Serving && u.config.Pruner == nil {
		return result, errors.NotValidf("serving phase without a pruner")
	}

	progress := newProgressReporter(params, len(requests))

	// Resolve every request once. Later phases reuse the resolutions,
	// so a dataset's targeted version set is computed before any
	// phase starts mutating it.
	resolutions := make(map[string]catalog.Resolution, len(requests))
	for _, req := range requests {
		res, err := u.config.Catalog.Resolve(ctx, req.Name, req.Version, params.DeleteAll, params.CompositeIDs)
		if err != nil {
			return result, errors.Trace(err)
		}
		if res.Dataset == nil {
			logger.Warningf("dataset not found in node database: %s", req.Name)
		}
		resolutions[req.Name] = res
	}

	result.Outcomes = make(map[string]corepublish.EventKind)
	if params.Operation != corepublish.OperationNone {
		if err := u.registryPhase(ctx, requests, resolutions, params, result.Outcomes, progress); err != nil {
			return result, errors.Trace(err)
		}
	}

	if params.Serving {
		if err := u.servingPhase(ctx, requests, resolutions, params, progress); err != nil {
			return result, errors.Trace(err)
		}
	}

	if params.Republish {
		result.Republish = []dataset.ID{}
	}
	if params.LocalDelete {
		for _, req := range requests {
			candidate, err := u.config.Catalog.DeleteRecords(ctx, resolutions[req.Name], params.Republish)
			if err != nil {
				return result, errors.Trace(err)
			}
			if candidate != nil {
				result.Republish = append(result.Republish, *candidate)
			}
			progress.step()
		}
	}
	return result, nil
}

// registryPhase applies the operation to every request. The target
// sent to the registry is the dataset's canonical name at dataset
// granularity, the stored per-version name at version granularity,
// and the raw request identifier when the dataset is not known
// locally or the identifiers are composite.
func (u *Unpublisher) registryPhase(
	ctx context.Context,
	requests []dataset.ID,
	resolutions map[string]catalog.Resolution,
	params Params,
	outcomes map[string]corepublish.EventKind,
	progress *progressReporter,
) error {
	service, err := u.config.NewRegistry(u.config.Registry)
	if err != nil {
		return errors.Annotate(err, "constructing registry client")
	}
	deleter := &registryDeleter{
		operation: params.Operation,
		service:   service,
		catalog:   u.config.Catalog,
	}

	for _, req := range requests {
		res := resolutions[req.Name]
		if !u.config.DatasetGranularity && res.Dataset != nil {
			for _, version := range res.Versions {
				kind, err := deleter.apply(ctx, version.Name, res)
				if err != nil {
					return errors.Annotatef(err, "registry %s of %q", params.Operation, version.Name)
				}
				outcomes[req.Name] = kind
			}
		} else {
			target := req.Name
			if u.config.DatasetGranularity && res.Dataset != nil && !params.CompositeIDs {
				target = res.Name
			}
			kind, err := deleter.apply(ctx, target, res)
			if err != nil {
				return errors.Annotatef(err, "registry %s of %q", params.Operation, target)
			}
			outcomes[req.Name] = kind
		}
		progress.step()
	}
	return nil
}

// servingPhase prunes the serving layer entries of every resolved
// dataset with targeted versions, then finalizes once for the batch.
func (u *Unpublisher) servingPhase(
	ctx context.Context,
	requests []dataset.ID,
	resolutions map[string]catalog.Resolution,
	params Params,
	progress *progressReporter,
) error {
	for _, req := range requests {
		res := resolutions[req.Name]
		if res.Dataset != nil && len(res.Versions) > 0 {
			versions := make([]int, len(res.Versions))
			for i, v := range res.Versions {
				versions[i] = v.Version
			}
			if err := u.config.Pruner.Prune(ctx, res.Name, versions); err != nil {
				return errors.Trace(err)
			}
		}
		progress.step()
	}
	return errors.Trace(u.config.Pruner.Finalize(ctx, params.Discovery))
}

// progressReporter maps completed per-request steps onto the caller's
// [Start, End] progress bounds.
type progressReporter struct {
	callback   func(float64)
	start, end float64
	total      int
	done       int
}

func newProgressReporter(params Params, requests int) *progressReporter {
	r := &progressReporter{
		callback: params.Progress,
		start:    params.Start,
		end:      params.End,
	}
	if r.callback == nil {
		return r
	}
	phases := 0
	if params.Operation != corepublish.OperationNone {
		phases++
	}
	if params.Serving {
		phases++
	}
	if params.LocalDelete {
		phases++
	}
	r.total = phases * requests
	return r
}

func (r *progressReporter) step() {
	if r.callback == nil || r.total == 0 {
		return
	}
	r.done++
	r.callback(r.start + (r.end-r.start)*float64(r.done)/float64(r.total))
}
