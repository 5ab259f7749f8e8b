// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package vbh implements a VM-aware binary heap: a priority queue over
// caller-supplied elements where the caller provides the ordering and is
// notified whenever an element's slot changes, so that deletion and
// re-ordering of an already-queued element costs O(log n) instead of a
// linear search.
//
// The heap is backed by a two-level array (a set of fixed-width rows
// addressed through an outer row table) so that the address of any
// element's slot never moves when the heap grows or shrinks - only the
// index does, and the index is what gets handed back to the caller
// through the update callback.
//
// By default the heap arranges parent/child links using the "VM-aware"
// layout described in Gil/Itai-style binary heaps for virtual memory: a
// page-sized sub-heap is embedded at every page boundary so that most
// parent/child traversals near the top of the tree stay within a single
// virtual-memory page. A classical layout (parent = u/2) is available
// through WithLayout for comparison and for callers that do not care
// about page locality.
package vbh
