// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"

	"github.com/juju/errors"
	"gopkg.in/httprequest.v1"
)

// LegacyDeletionClient removes published datasets through the legacy
// publication service.
type LegacyDeletionClient struct {
	client   httprequest.Client
	certFile string
}

// NewLegacyDeletionClient creates a LegacyDeletionClient for the
// service at the base URL, sending requests through the given doer.
func NewLegacyDeletionClient(baseURL string, doer httprequest.Doer, certFile string) *LegacyDeletionClient {
	return &LegacyDeletionClient{
		client: httprequest.Client{
			BaseURL:        baseURL,
			Doer:           doer,
			UnmarshalError: httprequest.ErrorUnmarshaler(new(legacyError)),
		},
		certFile: certFile,
	}
}

// legacyError is the error body returned by the legacy service.
type legacyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *legacyError) Error() string {
	return e.Message
}

type legacyDeleteRequest struct {
	httprequest.Route `httprequest:"POST /deleteDataset"`
	Body              legacyDeleteParams `httprequest:",body"`
}

type legacyDeleteParams struct {
	DatasetID string `json:"datasetId"`
	Recursive bool   `json:"recursive"`
	Message   string `json:"message"`
}

type legacyRetractRequest struct {
	httprequest.Route `httprequest:"POST /retractDataset"`
	Body              legacyRetractParams `httprequest:",body"`
}

type legacyRetractParams struct {
	DatasetID string `json:"datasetId"`
	Message   string `json:"message"`
}

// DeleteDataset implements DeletionService.
func (c *LegacyDeletionClient) DeleteDataset(ctx context.Context, id string) error {
	err := c.client.Call(ctx, &legacyDeleteRequest{
		Body: legacyDeleteParams{
			DatasetID: id,
			Recursive: true,
			Message:   deleteMessage,
		},
	}, nil)
	return errors.Trace(c.translate(err))
}

// RetractDataset implements DeletionService.
func (c *LegacyDeletionClient) RetractDataset(ctx context.Context, id string) error {
	err := c.client.Call(ctx, &legacyRetractRequest{
		Body: legacyRetractParams{
			DatasetID: id,
			Message:   retractMessage,
		},
	}, nil)
	return errors.Trace(c.translate(err))
}

// translate maps errors from the legacy service onto the registry
// error contract: refusals become RejectionErrors, anything else is a
// transport fault decorated with the certificate path.
func (c *LegacyDeletionClient) translate(err error) error {
	if err == nil {
		return nil
	}
	if lerr, ok := errors.Cause(err).(*legacyError); ok {
		return &RejectionError{Code: lerr.Code, Message: lerr.Message}
	}
	if c.certFile != "" {
		return errors.Annotatef(err, "is the client certificate %q valid?", c.certFile)
	}
	return err
}
