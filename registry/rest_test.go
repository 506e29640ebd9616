// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/ncaripsl/esg-publisher/registry"
	"github.com/ncaripsl/esg-publisher/registry/path"
	"github.com/ncaripsl/esg-publisher/registry/transport"
)

type RESTClientSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&RESTClientSuite{})

func (s *RESTClientSuite) client(c *gc.C, server *httptest.Server, certFile string) *registry.RESTDeletionClient {
	base, err := url.Parse(server.URL + "/ws")
	c.Assert(err, jc.ErrorIsNil)
	rest := registry.NewHTTPRESTClient(registry.NewAPIRequester(server.Client()))
	return registry.NewRESTDeletionClient(path.MakePath(base), rest, certFile)
}

func (s *RESTClientSuite) TestDeleteDataset(c *gc.C) {
	var got transport.DeleteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Check(r.Method, gc.Equals, "POST")
		c.Check(r.URL.Path, gc.Equals, "/ws/delete")
		c.Assert(json.NewDecoder(r.Body).Decode(&got), jc.ErrorIsNil)

		w.Header().Set("Content-Type", "application/json")
		c.Assert(json.NewEncoder(w).Encode(transport.DeletionResponse{Status: "SUCCESSFUL"}), jc.ErrorIsNil)
	}))
	defer server.Close()

	err := s.client(c, server, "").DeleteDataset(context.Background(), "obs4MIPs.NASA-JPL.AIRS.v1|esgf-data.llnl.gov")
	c.Assert(err, jc.ErrorIsNil)

	c.Check(got, gc.DeepEquals, transport.DeleteRequest{
		DatasetID: "obs4MIPs.NASA-JPL.AIRS.v1|esgf-data.llnl.gov",
		Recursive: true,
		Message:   "Deleting dataset",
	})
}

func (s *RESTClientSuite) TestRetractDataset(c *gc.C) {
	var got transport.RetractRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Check(r.URL.Path, gc.Equals, "/ws/retract")
		c.Assert(json.NewDecoder(r.Body).Decode(&got), jc.ErrorIsNil)

		w.Header().Set("Content-Type", "application/json")
		c.Assert(json.NewEncoder(w).Encode(transport.DeletionResponse{Status: "SUCCESSFUL"}), jc.ErrorIsNil)
	}))
	defer server.Close()

	err := s.client(c, server, "").RetractDataset(context.Background(), "cmip5.output1.MIROC.v2|esgf-data.llnl.gov")
	c.Assert(err, jc.ErrorIsNil)

	c.Check(got, gc.DeepEquals, transport.RetractRequest{
		DatasetID: "cmip5.output1.MIROC.v2|esgf-data.llnl.gov",
		Message:   "Retracting dataset",
	})
}

func (s *RESTClientSuite) TestDeleteDatasetRejected(c *gc.C) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		resp := transport.DeletionResponse{
			ErrorList: transport.APIErrors{{Code: "not-found", Message: "dataset not published"}},
		}
		c.Assert(json.NewEncoder(w).Encode(resp), jc.ErrorIsNil)
	}))
	defer server.Close()

	err := s.client(c, server, "").DeleteDataset(context.Background(), "cmip5.output1.MIROC.v2")
	c.Assert(err, gc.NotNil)
	c.Check(registry.IsRejection(err), jc.IsTrue)
	c.Check(err, gc.ErrorMatches, "dataset not published")

	rejection := errors.Cause(err).(*registry.RejectionError)
	c.Check(rejection.Code, gc.Equals, "not-found")
}

func (s *RESTClientSuite) TestDeleteDatasetServerError(c *gc.C) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := s.client(c, server, "").DeleteDataset(context.Background(), "cmip5.output1.MIROC.v2")
	c.Assert(err, gc.ErrorMatches, `server error ".*"`)
	c.Check(registry.IsRejection(err), jc.IsFalse)
}

func (s *RESTClientSuite) TestDeleteDatasetUnexpectedURL(c *gc.C) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := s.client(c, server, "").DeleteDataset(context.Background(), "cmip5.output1.MIROC.v2")
	c.Assert(err, gc.ErrorMatches, `unexpected registry url ".*" when parsing headers`)
	c.Check(registry.IsRejection(err), jc.IsFalse)
}

func (s *RESTClientSuite) TestDeleteDatasetFaultMentionsCertificate(c *gc.C) {
	server := httptest.NewServer(nil)
	server.Close()

	err := s.client(c, server, "/etc/grid-security/hostcert.pem").DeleteDataset(context.Background(), "cmip5.output1.MIROC.v2")
	c.Assert(err, gc.ErrorMatches, `is the client certificate "/etc/grid-security/hostcert.pem" valid\?: .*`)
	c.Check(registry.IsRejection(err), jc.IsFalse)
}
