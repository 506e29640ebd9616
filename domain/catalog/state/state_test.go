// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"context"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/ncaripsl/esg-publisher/core/dataset"
	"github.com/ncaripsl/esg-publisher/core/publish"
	"github.com/ncaripsl/esg-publisher/domain/catalog"
	catalogerrors "github.com/ncaripsl/esg-publisher/domain/catalog/errors"
	schematesting "github.com/ncaripsl/esg-publisher/domain/schema/testing"
)

type stateSuite struct {
	schematesting.CatalogSuite

	state *State
}

var _ = gc.Suite(&stateSuite{})

func (s *stateSuite) SetUpTest(c *gc.C) {
	s.CatalogSuite.SetUpTest(c)
	s.state = NewState(s.TxnRunnerFactory())
}

func (s *stateSuite) seedDataset(c *gc.C, name string, versions ...int) {
	s.Exec(c, "INSERT INTO dataset (name, project) VALUES (?, ?)", name, "cmip5")
	for _, v := range versions {
		s.Exec(c, "INSERT INTO dataset_version (dataset_name, version, name) VALUES (?, ?, ?)",
			name, v, dataset.VersionName(name, v))
	}
}

func (s *stateSuite) countRows(c *gc.C, table, name string) int {
	var count int
	row := s.DB().QueryRow("SELECT COUNT(*) FROM "+table+" WHERE dataset_name = ?", name)
	c.Assert(row.Scan(&count), jc.ErrorIsNil)
	return count
}

func (s *stateSuite) TestGetDataset(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 1)

	dset, err := s.state.GetDataset(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(dset, gc.DeepEquals, catalog.Dataset{Name: "cmip5.output1.MIROC", Project: "cmip5"})
}

func (s *stateSuite) TestGetDatasetNotFound(c *gc.C) {
	_, err := s.state.GetDataset(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIs, catalogerrors.DatasetNotFound)
}

func (s *stateSuite) TestListVersionsAscending(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 3, 1, 2)

	versions, err := s.state.ListVersions(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(versions, gc.HasLen, 3)
	for i, expect := range []int{1, 2, 3} {
		c.Check(versions[i].Version, gc.Equals, expect)
		c.Check(versions[i].Name, gc.Equals, dataset.VersionName("cmip5.output1.MIROC", expect))
		c.Check(versions[i].CreatedAt.IsZero(), jc.IsFalse)
	}
}

func (s *stateSuite) TestListVersionsEmpty(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC")

	versions, err := s.state.ListVersions(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(versions, gc.HasLen, 0)
}

func (s *stateSuite) TestAppendAndListEvents(c *gc.C) {
	err := s.state.AppendEvent(context.Background(), "cmip5.output1.MIROC", 2, publish.RegistryDeleteSucceeded)
	c.Assert(err, jc.ErrorIsNil)
	err = s.state.AppendEvent(context.Background(), "cmip5.output1.MIROC", 2, publish.DatasetDeleted)
	c.Assert(err, jc.ErrorIsNil)

	events, err := s.state.ListEvents(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(events, gc.HasLen, 2)
	c.Check(events[0].Kind, gc.Equals, publish.RegistryDeleteSucceeded)
	c.Check(events[1].Kind, gc.Equals, publish.DatasetDeleted)
	c.Check(events[0].Version, gc.Equals, 2)
}

func (s *stateSuite) TestClearStatusLeavesOtherModules(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 1)

	err := s.state.AddStatus(context.Background(), "cmip5.output1.MIROC", publish.StatusError, publish.Module, "deletion failed")
	c.Assert(err, jc.ErrorIsNil)
	err = s.state.AddStatus(context.Background(), "cmip5.output1.MIROC", publish.StatusWarning, "extract", "missing variable")
	c.Assert(err, jc.ErrorIsNil)

	err = s.state.ClearStatus(context.Background(), "cmip5.output1.MIROC", publish.Module)
	c.Assert(err, jc.ErrorIsNil)

	var module string
	row := s.DB().QueryRow("SELECT module FROM dataset_status WHERE dataset_name = ?", "cmip5.output1.MIROC")
	c.Assert(row.Scan(&module), jc.ErrorIsNil)
	c.Check(module, gc.Equals, "extract")
}

func (s *stateSuite) TestGetEntry(c *gc.C) {
	s.Exec(c, "INSERT INTO catalog_entry (dataset_name, version, location) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", 2, "cmip5/output1/MIROC.v2.xml")

	entry, err := s.state.GetEntry(context.Background(), "cmip5.output1.MIROC", 2)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(entry, gc.DeepEquals, catalog.Entry{
		DatasetName: "cmip5.output1.MIROC",
		Version:     2,
		Location:    "cmip5/output1/MIROC.v2.xml",
	})
}

func (s *stateSuite) TestGetEntryNotFound(c *gc.C) {
	_, err := s.state.GetEntry(context.Background(), "cmip5.output1.MIROC", 2)
	c.Assert(err, jc.ErrorIs, catalogerrors.EntryNotFound)
}

func (s *stateSuite) TestRemoveEntryRecordsEvent(c *gc.C) {
	s.Exec(c, "INSERT INTO catalog_entry (dataset_name, version, location) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", 2, "cmip5/output1/MIROC.v2.xml")

	err := s.state.RemoveEntry(context.Background(), "cmip5.output1.MIROC", 2, publish.ServingEntryRemoved)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.countRows(c, "catalog_entry", "cmip5.output1.MIROC"), gc.Equals, 0)
	events, err := s.state.ListEvents(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(events, gc.HasLen, 1)
	c.Check(events[0].Kind, gc.Equals, publish.ServingEntryRemoved)
	c.Check(events[0].Version, gc.Equals, 2)
}

func (s *stateSuite) TestRemoveEntryWithoutEvent(c *gc.C) {
	s.Exec(c, "INSERT INTO catalog_entry (dataset_name, version, location) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", 2, "cmip5/output1/MIROC.v2.xml")

	err := s.state.RemoveEntry(context.Background(), "cmip5.output1.MIROC", 2, "")
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.countRows(c, "catalog_entry", "cmip5.output1.MIROC"), gc.Equals, 0)
	c.Check(s.countRows(c, "dataset_event", "cmip5.output1.MIROC"), gc.Equals, 0)
}

func (s *stateSuite) TestRemoveEntryAbsent(c *gc.C) {
	err := s.state.RemoveEntry(context.Background(), "cmip5.output1.MIROC", 2, publish.ServingEntryRemoved)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *stateSuite) TestDeleteDataset(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 1, 2)
	s.Exec(c, "INSERT INTO dataset_variable (dataset_name, name, long_name) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", "tas", "air temperature")
	s.Exec(c, "INSERT INTO dataset_status (dataset_name, level, module, message) VALUES (?, ?, ?, ?)",
		"cmip5.output1.MIROC", "error", publish.Module, "boom")
	s.Exec(c, "INSERT INTO catalog_entry (dataset_name, version, location) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", 2, "cmip5/output1/MIROC.v2.xml")

	err := s.state.DeleteDataset(context.Background(), "cmip5.output1.MIROC", 2)
	c.Assert(err, jc.ErrorIsNil)

	_, err = s.state.GetDataset(context.Background(), "cmip5.output1.MIROC")
	c.Check(err, jc.ErrorIs, catalogerrors.DatasetNotFound)
	c.Check(s.countRows(c, "dataset_version", "cmip5.output1.MIROC"), gc.Equals, 0)
	c.Check(s.countRows(c, "dataset_variable", "cmip5.output1.MIROC"), gc.Equals, 0)
	c.Check(s.countRows(c, "dataset_status", "cmip5.output1.MIROC"), gc.Equals, 0)

	// Serving entries are not this method's to remove.
	c.Check(s.countRows(c, "catalog_entry", "cmip5.output1.MIROC"), gc.Equals, 1)

	// The deletion event outlives the dataset.
	events, err := s.state.ListEvents(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(events, gc.HasLen, 1)
	c.Check(events[0].Kind, gc.Equals, publish.DatasetDeleted)
	c.Check(events[0].Version, gc.Equals, 2)
}

func (s *stateSuite) TestDeleteVersionLatest(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 1, 2)
	s.Exec(c, "INSERT INTO dataset_variable (dataset_name, name, long_name) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", "tas", "air temperature")

	err := s.state.DeleteVersion(context.Background(), "cmip5.output1.MIROC", 2, true)
	c.Assert(err, jc.ErrorIsNil)

	versions, err := s.state.ListVersions(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(versions, gc.HasLen, 1)
	c.Check(versions[0].Version, gc.Equals, 1)
	c.Check(s.countRows(c, "dataset_variable", "cmip5.output1.MIROC"), gc.Equals, 0)

	events, err := s.state.ListEvents(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(events, gc.HasLen, 1)
	c.Check(events[0].Kind, gc.Equals, publish.VersionDeleted)
	c.Check(events[0].Version, gc.Equals, 2)
}

func (s *stateSuite) TestDeleteVersionKeepsVariables(c *gc.C) {
	s.seedDataset(c, "cmip5.output1.MIROC", 1, 2)
	s.Exec(c, "INSERT INTO dataset_variable (dataset_name, name, long_name) VALUES (?, ?, ?)",
		"cmip5.output1.MIROC", "tas", "air temperature")

	err := s.state.DeleteVersion(context.Background(), "cmip5.output1.MIROC", 1, false)
	c.Assert(err, jc.ErrorIsNil)

	versions, err := s.state.ListVersions(context.Background(), "cmip5.output1.MIROC")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(versions, gc.HasLen, 1)
	c.Check(versions[0].Version, gc.Equals, 2)
	c.Check(s.countRows(c, "dataset_variable", "cmip5.output1.MIROC"), gc.Equals, 1)
}
