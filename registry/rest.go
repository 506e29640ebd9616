// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"
	"net/http"

	"github.com/juju/errors"

	"github.com/ncaripsl/esg-publisher/registry/path"
	"github.com/ncaripsl/esg-publisher/registry/transport"
)

// RESTDeletionClient removes published datasets through the REST
// publication services.
type RESTDeletionClient struct {
	deletePath  path.Path
	retractPath path.Path
	client      RESTClient
	certFile    string
}

// NewRESTDeletionClient creates a RESTDeletionClient for the service
// rooted at the base path.
func NewRESTDeletionClient(base path.Path, client RESTClient, certFile string) *RESTDeletionClient {
	return &RESTDeletionClient{
		deletePath:  base.Join("delete"),
		retractPath: base.Join("retract"),
		client:      client,
		certFile:    certFile,
	}
}

// DeleteDataset implements DeletionService.
func (c *RESTDeletionClient) DeleteDataset(ctx context.Context, id string) error {
	req := transport.DeleteRequest{
		DatasetID: id,
		Recursive: true,
		Message:   deleteMessage,
	}
	var resp transport.DeletionResponse
	restResp, err := c.client.Post(ctx, c.deletePath, req, &resp)
	if err != nil {
		return errors.Trace(c.fault(err))
	}
	return errors.Trace(rejection(restResp, resp))
}

// RetractDataset implements DeletionService.
func (c *RESTDeletionClient) RetractDataset(ctx context.Context, id string) error {
	req := transport.RetractRequest{
		DatasetID: id,
		Message:   retractMessage,
	}
	var resp transport.DeletionResponse
	restResp, err := c.client.Post(ctx, c.retractPath, req, &resp)
	if err != nil {
		return errors.Trace(c.fault(err))
	}
	return errors.Trace(rejection(restResp, resp))
}

// fault decorates transport failures with the certificate path.
func (c *RESTDeletionClient) fault(err error) error {
	if c.certFile != "" {
		return errors.Annotatef(err, "is the client certificate %q valid?", c.certFile)
	}
	return err
}

// rejection turns an error-bearing response into a RejectionError.
func rejection(restResp RESTResponse, resp transport.DeletionResponse) error {
	if len(resp.ErrorList) > 0 {
		return &RejectionError{
			Code:    resp.ErrorList[0].Code,
			Message: resp.ErrorList.Combine().Error(),
		}
	}
	if restResp.StatusCode >= http.StatusBadRequest {
		return &RejectionError{Message: http.StatusText(restResp.StatusCode)}
	}
	return nil
}
