// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package errors

import (
	"github.com/juju/errors"
)

const (
	// DatasetNotFound describes an error that occurs when the dataset
	// being operated on is not present in the node catalog.
	DatasetNotFound = errors.ConstError("dataset not found")

	// EntryNotFound describes an error that occurs when a dataset
	// version has no catalog entry in the serving layer.
	EntryNotFound = errors.ConstError("catalog entry not found")
)
