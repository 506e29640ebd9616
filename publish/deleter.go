// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	corepublish "github.com/ncaripsl/esg-publisher/core/publish"
	"github.com/ncaripsl/esg-publisher/domain/catalog"
	"github.com/ncaripsl/esg-publisher/registry"
)

// registryDeleter applies one registry operation to one target at a
// time, recording each outcome against the local dataset when one is
// known.
type registryDeleter struct {
	operation corepublish.Operation
	service   registry.DeletionService
	catalog   CatalogService
}

// apply issues the operation against the registry for the named
// target. A rejection by the registry is not an error: it is written
// to the dataset's status and audit records and reported through the
// returned event kind, so that the rest of the batch keeps going. The
// returned error is reserved for failures to reach the registry at
// all, which the caller treats as fatal to the whole phase.
//
// Events are recorded against the dataset's current maximum version,
// whichever version the target names: the audit trail tracks the
// dataset's registry presence, which the registry keys by dataset.
func (d *registryDeleter) apply(ctx context.Context, target string, res catalog.Resolution) (corepublish.EventKind, error) {
	if res.Dataset != nil {
		if err := d.catalog.ClearWarnings(ctx, res.Name); err != nil {
			return "", errors.Trace(err)
		}
	}

	var applyErr error
	switch d.operation {
	case corepublish.OperationDelete:
		logger.Infof("deleting %s", target)
		applyErr = d.service.DeleteDataset(ctx, target)
	case corepublish.OperationRetract:
		logger.Infof("retracting %s", target)
		applyErr = d.service.RetractDataset(ctx, target)
	}

	succeeded, failed := d.operation.EventKinds()
	kind := succeeded
	if applyErr != nil {
		if !registry.IsRejection(applyErr) {
			return "", errors.Trace(applyErr)
		}
		logger.Errorf("%s rejected for %s: %v", d.operation, target, applyErr)
		kind = failed
	}

	if res.Dataset != nil {
		if applyErr != nil {
			message := fmt.Sprintf("Deletion/retraction failed for dataset %s with message: %s",
				target, rejectionMessage(applyErr))
			if err := d.catalog.RecordWarning(ctx, res.Name, message); err != nil {
				logger.Errorf("recording registry warning for %s: %v", res.Name, err)
			}
		}
		if err := d.catalog.RecordEvent(ctx, res.Name, res.MaxVersion, kind); err != nil {
			logger.Errorf("recording registry event for %s: %v", res.Name, err)
		}
	}
	return kind, nil
}

// rejectionMessage condenses a registry refusal to the leading lines
// kept in the dataset's status record.
func rejectionMessage(err error) string {
	lines := strings.SplitN(err.Error(), "\n", 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	return strings.Join(lines, " ")
}
