// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package dataset holds the identifier types shared by the
// unpublication flows: a dataset is addressed by name, a single version
// of it by (name, version number).
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// AllVersions is the version number sentinel addressing every version
// of a dataset.
const AllVersions = -1

// ID addresses a dataset, or one version of it when Version is not
// AllVersions. It is both the element of an unpublication request list
// and of the republish list returned by a run.
type ID struct {
	Name    string
	Version int
}

// String renders the identifier the way the registry names it: the bare
// dataset name when all versions are addressed, otherwise the
// per-version name.
func (id ID) String() string {
	if id.Version == AllVersions {
		return id.Name
	}
	return VersionName(id.Name, id.Version)
}

// VersionName returns the registry-facing name of a single dataset
// version, for example "obs4MIPs.NASA-JPL.AIRS.v2" for version 2.
func VersionName(name string, version int) string {
	return fmt.Sprintf("%s.v%d", name, version)
}

// SplitNode splits an identifier of the form "dataset_id|data_node",
// as used by the REST publication services, into its dataset and data
// node parts. The node is empty when the "|data_node" segment is
// absent; callers are expected to warn about that but carry on.
func SplitNode(id string) (string, string) {
	if i := strings.IndexByte(id, '|'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// ParseVersionName splits a per-version name of the form "name.vN"
// into the dataset name and version number. An identifier without a
// well-formed version suffix returns an error satisfying
// errors.NotValid.
func ParseVersionName(id string) (string, int, error) {
	i := strings.LastIndex(id, ".v")
	if i < 0 {
		return "", 0, errors.NotValidf("dataset identifier %q", id)
	}
	version, err := strconv.Atoi(id[i+2:])
	if err != nil || version < 0 {
		return "", 0, errors.NotValidf("version in dataset identifier %q", id)
	}
	return id[:i], version, nil
}

// ParseComposite splits a full composite identifier
// "master_id.version|data_node" into dataset name, version number and
// data node.
func ParseComposite(id string) (string, int, string, error) {
	rest, node := SplitNode(id)
	name, version, err := ParseVersionName(rest)
	if err != nil {
		return "", 0, "", errors.Trace(err)
	}
	return name, version, node, nil
}
