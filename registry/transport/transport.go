// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package transport holds the wire types of the REST publication
// services.
package transport

// DeleteRequest asks the registry to remove all metadata for a
// dataset.
type DeleteRequest struct {
	DatasetID string `json:"dataset_id"`
	Recursive bool   `json:"recursive"`
	Message   string `json:"message"`
}

// RetractRequest asks the registry to withdraw a dataset from
// discovery while keeping its records.
type RetractRequest struct {
	DatasetID string `json:"dataset_id"`
	Message   string `json:"message"`
}

// DeletionResponse is the registry's answer to a delete or retract
// request. A populated ErrorList means the request was received and
// refused.
type DeletionResponse struct {
	Status    string    `json:"status,omitempty"`
	ErrorList APIErrors `json:"error-list,omitempty"`
}
