// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package path exists to wrap url.URL so that request paths can be
// derived from a base URL without mutating it.
package path

import (
	"net/url"
	"path"
)

// Path wraps a base URL and derives endpoint URLs from it.
type Path struct {
	base *url.URL
}

// MakePath creates a path from the base URL.
func MakePath(base *url.URL) Path {
	return Path{base: base}
}

// Join returns a new Path with the given named segments appended to
// the URL path.
func (p Path) Join(names ...string) Path {
	u := *p.base
	u.Path = path.Join(append([]string{u.Path}, names...)...)
	return MakePath(&u)
}

// String returns the complete URL of the path.
func (p Path) String() string {
	return p.base.String()
}
