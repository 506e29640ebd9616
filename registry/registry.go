// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package registry talks to the federation publication services that
// hold the discoverable metadata of published datasets. Two interfaces
// are spoken: the REST publication services, and the legacy
// publication service that predates them.
package registry

import (
	"context"
	"net/url"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/ncaripsl/esg-publisher/registry/path"
)

var logger = loggo.GetLogger("esgpublisher.registry")

// Messages attached to deletion and retraction requests, recorded by
// the registry alongside the operation.
const (
	deleteMessage  = "Deleting dataset"
	retractMessage = "Retracting dataset"
)

// DeletionService removes published dataset metadata from the
// federation registry.
type DeletionService interface {
	// DeleteDataset removes all registry metadata for the identified
	// dataset or dataset version. A refusal by the registry returns an
	// error satisfying IsRejection; any failure to reach the registry
	// returns a plain error.
	DeleteDataset(ctx context.Context, id string) error

	// RetractDataset withdraws the identified dataset or dataset
	// version from discovery while leaving its registry records in
	// place. Errors are reported as for DeleteDataset.
	RetractDataset(ctx context.Context, id string) error
}

// Config holds everything needed to construct a DeletionService.
type Config struct {
	// URL is the base URL of the publication service.
	URL string

	// Legacy selects the legacy publication interface rather than the
	// REST services.
	Legacy bool

	// CertFile and KeyFile hold the client certificate pair presented
	// to the service. Publication services authenticate writers by
	// certificate; leaving both empty disables mutual TLS.
	CertFile string
	KeyFile  string

	// Timeout bounds each request when the certificate transport is
	// used; zero means no limit.
	Timeout time.Duration

	// Attempts is the number of times a request that fails to reach
	// the registry is tried before giving up. Values below 2 disable
	// retrying. Rejections are never retried.
	Attempts int

	// RetryDelay is the pause between attempts; zero means ten
	// seconds.
	RetryDelay time.Duration
}

// NewDeletionService returns a DeletionService speaking the configured
// publication interface.
func NewDeletionService(cfg Config) (DeletionService, error) {
	if cfg.URL == "" {
		return nil, errors.NotValidf("empty registry URL")
	}

	var transport Transport
	if cfg.CertFile != "" || cfg.KeyFile != "" {
		var err error
		if transport, err = NewTLSTransport(cfg.CertFile, cfg.KeyFile, cfg.Timeout); err != nil {
			return nil, errors.Trace(err)
		}
	} else {
		transport = DefaultHTTPTransport()
	}
	requester := NewAPIRequester(transport)

	var service DeletionService
	if cfg.Legacy {
		service = NewLegacyDeletionClient(cfg.URL, requester, cfg.CertFile)
	} else {
		base, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, errors.Annotatef(err, "parsing registry URL %q", cfg.URL)
		}
		service = NewRESTDeletionClient(path.MakePath(base), NewHTTPRESTClient(requester), cfg.CertFile)
	}

	if cfg.Attempts > 1 {
		delay := cfg.RetryDelay
		if delay == 0 {
			delay = 10 * time.Second
		}
		service = NewRetryingDeletionService(service, clock.WallClock, cfg.Attempts, delay)
	}
	return service, nil
}
