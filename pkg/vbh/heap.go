// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vbh

// NoIndex is the sentinel index value handed to the update callback
// when an element is removed from the heap. It can never be the valid
// slot of a live element.
const NoIndex uint32 = ^uint32(0)

// rootIdx is the slot of the highest-priority element. Slot 0 is never
// used so that "parent of the root" and "no slot" can both be told
// apart from a valid index.
const rootIdx uint32 = 1

// rowShift controls how many elements live in one row of the
// two-level backing array: 1<<rowShift. Keeping it fairly large (64k
// entries) amortizes the cost of growing the heap over a large number
// of inserts, while bounding the amount of memory wasted by a
// half-empty tail row to one row's worth.
const rowShift = 16
const rowWidth = 1 << rowShift

// Less reports whether a has strictly higher priority than b. It must
// be a strict weak ordering; the heap keeps no other requirement on
// the element type. A comparator that always returns false turns the
// heap into an unordered bag with O(1) insert and O(n) everything
// else, which is a valid (if useless) way to satisfy the interface.
type Less[T any] func(a, b T) bool

// Notify is called by the heap every time the slot of elem changes,
// including the very first time it is assigned one by Insert. idx is
// NoIndex when elem has just been removed. Implementations normally
// just stash idx on elem so that a later Delete/Reorder call does not
// need to search for it. Notify must not call back into the heap.
type Notify[T any] func(elem T, idx uint32)

// Option configures a Heap at construction time.
type Option func(*config)

type config struct {
	layout     Layout
	initialRow int
}

// WithLayout selects the index arithmetic used by the heap. The
// default is LayoutVMAware.
func WithLayout(l Layout) Option {
	return func(c *config) { c.layout = l }
}

// withInitialRows overrides the number of row slots the outer table
// starts out with. Production code has no reason to touch this; it
// exists so tests can exercise row growth/shrink without allocating
// the production-sized outer table up front.
func withInitialRows(n int) Option {
	return func(c *config) { c.initialRow = n }
}

// Heap is a priority queue over elements of type T. The zero value is
// not usable; construct one with New. A Heap is not safe for
// concurrent use by multiple goroutines without external
// synchronization.
type Heap[T any] struct {
	cmp    Less[T]
	update Notify[T]
	layout Layout

	rows   [][]T
	length uint32 // total addressable slots, i.e. len(rows)*rowWidth over allocated rows
	next   uint32 // next free slot; live elements occupy [rootIdx, next)

	pageSize, pageMask, pageShift uint32
}

// New creates an empty heap. cmp and update must both be non-nil.
func New[T any](cmp Less[T], update Notify[T], opts ...Option) *Heap[T] {
	if cmp == nil || update == nil {
		panic("vbh: cmp and update must not be nil")
	}

	cfg := config{layout: LayoutVMAware, initialRow: 16}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Heap[T]{
		cmp:    cmp,
		update: update,
		layout: cfg.layout,
		rows:   make([][]T, cfg.initialRow),
		next:   rootIdx,
	}
	h.pageSize, h.pageMask, h.pageShift = pageParams()
	if h.pageSize > rowWidth {
		panic("vbh: platform page size does not fit in one row")
	}
	h.addRow()
	return h
}

// Destroy releases the heap's backing storage. It panics if the heap
// is not empty: callers are expected to have removed every element
// themselves first, since the heap never owns element memory and
// cannot free it on the caller's behalf.
func (h *Heap[T]) Destroy() {
	if h.next != rootIdx {
		panic("vbh: Destroy called on a non-empty heap")
	}
	h.rows = nil
	h.length = 0
}

// Len returns the number of elements currently in the heap.
func (h *Heap[T]) Len() int {
	return int(h.next - rootIdx)
}

// Root returns the highest-priority element, or the zero value and
// false if the heap is empty.
func (h *Heap[T]) Root() (T, bool) {
	if h.next == rootIdx {
		var zero T
		return zero, false
	}
	return h.at(rootIdx), true
}

// Insert adds elem to the heap. The update callback fires once with
// elem's newly assigned index, and again for every element it is
// swapped past while trickling up to its heap-ordered position.
func (h *Heap[T]) Insert(elem T) {
	if h.length == h.next {
		h.addRow()
	}
	u := h.next
	h.next++
	h.set(u, elem)
	h.notify(u)
	h.trickleUp(u)
}

// Delete removes the element at idx. idx must satisfy
// 0 < idx < Len()+rootIdx, i.e. it must be a slot returned to the
// caller by a previous Notify call that has not since been
// invalidated.
//
// Deletion works by notifying the removed element with NoIndex,
// filling the hole with the heap's last element (instead of trying to
// trickle the hole itself down to a leaf) and then letting that
// relocated element trickle up or down to wherever it belongs:
// replace-with-tail needs at most one trickle-up and one trickle-down,
// whereas sinking the hole itself to a leaf first and then trickling
// the tail element back up would do twice the work.
func (h *Heap[T]) Delete(idx uint32) {
	if h.next <= rootIdx {
		panic("vbh: Delete called on an empty heap")
	}
	if idx == 0 || idx >= h.next {
		panic("vbh: Delete index out of range")
	}

	h.update(h.at(idx), NoIndex)
	h.next--
	if idx == h.next {
		h.clear(h.next)
		h.maybeShrink()
		return
	}

	h.set(idx, h.at(h.next))
	h.clear(h.next)
	h.notify(idx)
	idx = h.trickleUp(idx)
	h.trickleDown(idx)
	h.maybeShrink()
}

// Reorder repositions the element at idx after its key has changed.
// At most one of the two trickle directions does any work; the other
// is a no-op, so the total cost stays O(log n).
func (h *Heap[T]) Reorder(idx uint32) {
	if idx == 0 || idx >= h.next {
		panic("vbh: Reorder index out of range")
	}
	idx = h.trickleUp(idx)
	h.trickleDown(idx)
}

func (h *Heap[T]) trickleUp(u uint32) uint32 {
	for u > rootIdx {
		p := h.parent(u)
		if !h.cmp(h.at(u), h.at(p)) {
			break
		}
		h.swap(u, p)
		u = p
	}
	return u
}

func (h *Heap[T]) trickleDown(u uint32) uint32 {
	for {
		c1, c2 := h.children(u)
		if c1 >= h.next {
			return u
		}
		if c1 != c2 && c2 < h.next && h.cmp(h.at(c2), h.at(c1)) {
			c1 = c2
		}
		if h.cmp(h.at(u), h.at(c1)) {
			return u
		}
		h.swap(u, c1)
		u = c1
	}
}

func (h *Heap[T]) swap(u, v uint32) {
	a, b := h.at(u), h.at(v)
	h.set(u, b)
	h.set(v, a)
	h.notify(u)
	h.notify(v)
}

func (h *Heap[T]) notify(u uint32) {
	h.update(h.at(u), u)
}

func (h *Heap[T]) at(u uint32) T {
	return h.rows[u>>rowShift][u&(rowWidth-1)]
}

func (h *Heap[T]) set(u uint32, v T) {
	h.rows[u>>rowShift][u&(rowWidth-1)] = v
}

func (h *Heap[T]) clear(u uint32) {
	var zero T
	h.rows[u>>rowShift][u&(rowWidth-1)] = zero
}

// addRow appends one more row of storage, growing the outer row table
// first if it is full. Existing rows are never moved, which is what
// keeps indexes handed out to the caller stable across growth.
func (h *Heap[T]) addRow() {
	rowIdx := int(h.length >> rowShift)
	if rowIdx >= len(h.rows) {
		grown := make([][]T, max(len(h.rows)*2, 1))
		copy(grown, h.rows)
		h.rows = grown
	}
	h.rows[rowIdx] = make([]T, rowWidth)
	h.length += rowWidth
}

// maybeShrink returns the tail row to the garbage collector once
// next+2*rowWidth <= length, i.e. once the tail row and the row before
// it are both empty. The one spare row kept as hysteresis avoids
// repeatedly allocating/freeing a row for workloads that hover right
// around a row boundary.
func (h *Heap[T]) maybeShrink() {
	if h.next+2*rowWidth > h.length {
		return
	}
	lastRow := int(h.length>>rowShift) - 1
	h.rows[lastRow] = nil
	h.length -= rowWidth
}
