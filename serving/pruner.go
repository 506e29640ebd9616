// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package serving removes a dataset's presence from the serving layer:
// the per-version catalog files generated when it was published, and
// the aggregate index that references them.
package serving

import (
	"context"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/ncaripsl/esg-publisher/domain/catalog"
	catalogerrors "github.com/ncaripsl/esg-publisher/domain/catalog/errors"
)

var logger = loggo.GetLogger("esgpublisher.serving")

// CatalogService exposes the node catalog operations used to track
// serving layer entries.
type CatalogService interface {
	// Entry returns the serving catalog entry for a dataset version,
	// or an error satisfying catalogerrors.EntryNotFound.
	Entry(ctx context.Context, name string, version int) (catalog.Entry, error)

	// RemoveEntry deletes the serving catalog entry for a dataset
	// version, recording an entry-removed event when recordEvent is
	// true.
	RemoveEntry(ctx context.Context, name string, version int, recordEvent bool) error
}

// IndexRegenerator regenerates the serving layer's aggregate index
// after catalog files have been removed.
type IndexRegenerator interface {
	RegenerateIndex(ctx context.Context) error
}

// Reinitializer tells the discovery service to reload its view of the
// serving layer.
type Reinitializer interface {
	Reinitialize(ctx context.Context) error
}

// Config holds the configuration and dependencies for a Pruner.
type Config struct {
	// Catalog holds the node catalog that tracks which versions have
	// a serving layer presence.
	Catalog CatalogService

	// Index holds the aggregate index regeneration trigger.
	Index IndexRegenerator

	// Discovery holds the discovery service trigger, or nil when no
	// discovery service is deployed.
	Discovery Reinitializer

	// Root is the directory holding the generated catalog files.
	// Entry locations are resolved relative to it.
	Root string
}

// Validate returns an error if the config cannot be expected to drive
// a functional Pruner.
func (config Config) Validate() error {
	if config.Catalog == nil {
		return errors.NotValidf("nil Catalog")
	}
	if config.Index == nil {
		return errors.NotValidf("nil Index")
	}
	if config.Root == "" {
		return errors.NotValidf("empty Root")
	}
	return nil
}

// Pruner removes per-version catalog files and the entry records that
// track them.
type Pruner struct {
	config Config
}

// NewPruner returns a Pruner backed by config.
func NewPruner(config Config) (*Pruner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Pruner{config: config}, nil
}

// Prune removes the catalog files and entry records for the given
// versions of a dataset. Versions without an entry are skipped, so
// pruning an already pruned set is a no-op. An entry-removed event is
// recorded only when a backing file was actually unlinked; the entry
// record itself is removed either way.
func (p *Pruner) Prune(ctx context.Context, name string, versions []int) error {
	for _, version := range versions {
		entry, err := p.config.Catalog.Entry(ctx, name, version)
		if errors.Is(err, catalogerrors.EntryNotFound) {
			continue
		} else if err != nil {
			return errors.Trace(err)
		}
		removed, err := p.removeFile(entry)
		if err != nil {
			return errors.Trace(err)
		}
		if err := p.config.Catalog.RemoveEntry(ctx, name, version, removed); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// removeFile unlinks the entry's backing file, reporting whether a
// file was there to remove.
func (p *Pruner) removeFile(entry catalog.Entry) (bool, error) {
	target := filepath.Join(p.config.Root, entry.Location)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	logger.Infof("deleting catalog file %s", target)
	if err := os.Remove(target); err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}

// Finalize regenerates the aggregate index and, when reinitDiscovery
// is true and a discovery service is configured, tells it to reload.
// Callers run Finalize once per batch, after every dataset has been
// pruned.
func (p *Pruner) Finalize(ctx context.Context, reinitDiscovery bool) error {
	logger.Debugf("regenerating aggregate catalog index")
	if err := p.config.Index.RegenerateIndex(ctx); err != nil {
		return errors.Annotate(err, "regenerating aggregate index")
	}
	if reinitDiscovery && p.config.Discovery != nil {
		if err := p.config.Discovery.Reinitialize(ctx); err != nil {
			return errors.Annotate(err, "reinitializing discovery service")
		}
	}
	return nil
}
