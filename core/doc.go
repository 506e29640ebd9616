// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package core holds concepts and pure logic pertaining to the
publisher's domain: dataset identity and the vocabulary of publication
operations and events.

This is a necessarily broad brush; if anything, it's most important to
be aware what should *not* go here. In particular:

  - if it makes any reference to the catalog database, it should not be
    in here.
  - if it's in any way concerned with wire transport, or serialization,
    it should not be in here.

It's fine to import from any subpackage of core, but never from any
other subpackage of the publisher, and don't introduce mutable global
state.
*/
package core
