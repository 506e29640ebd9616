// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package transport

import (
	"strings"

	"github.com/juju/errors"
)

// APIError represents the error from the registry API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (a APIError) Error() string {
	return a.Message
}

// APIErrors represents a slice of APIError's
type APIErrors []APIError

// Combine will combine any errors into one error.
func (a APIErrors) Combine() error {
	if len(a) > 0 {
		var combined []string
		for _, e := range a {
			if e.Message != "" {
				combined = append(combined, e.Message)
			}
		}
		return errors.Errorf(strings.Join(combined, "\n"))
	}
	return nil
}
