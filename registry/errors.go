// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"github.com/juju/errors"
)

// RejectionError reports that the registry received a deletion or
// retraction request and refused to apply it. A rejection affects only
// the target it was raised for; callers record it and move on to the
// next target.
type RejectionError struct {
	// Code is the machine-readable refusal code, when the service
	// supplied one.
	Code string

	// Message is the registry's explanation of the refusal.
	Message string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return e.Message
}

// IsRejection reports whether err was caused by the registry refusing
// a request, as opposed to the request not reaching the registry at
// all.
func IsRejection(err error) bool {
	_, ok := errors.Cause(err).(*RejectionError)
	return ok
}
