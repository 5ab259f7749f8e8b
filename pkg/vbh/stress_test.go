// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vbh

import (
	"math/rand"
	"testing"
)

type stressElem struct {
	key int64
	idx uint32
}

// TestStressReplaceRoot builds a large heap of random keys, then
// repeatedly pops and reinserts the root for a large number of
// iterations, checking that no observed root exceeds the key inserted
// just before it and that the final drain is monotonic. Skipped under
// -short since it moves several hundred thousand elements.
func TestStressReplaceRoot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping heap stress test in short mode")
	}

	const nElems = 131101
	const nIter = 500083

	rng := rand.New(rand.NewSource(42))

	// Reversed comparator: "higher priority" means numerically larger,
	// so Root() always holds the running maximum and each replacement
	// must not exceed the key most recently inserted.
	h := New(
		func(a, b *stressElem) bool { return a.key > b.key },
		func(e *stressElem, idx uint32) { e.idx = idx },
	)

	for i := 0; i < nElems; i++ {
		h.Insert(&stressElem{key: rng.Int63n(1 << 40)})
	}

	lastInserted := int64(1) << 62
	for i := 0; i < nIter; i++ {
		root, ok := h.Root()
		if !ok {
			t.Fatal("heap unexpectedly empty during stress run")
		}
		if root.key > lastInserted {
			t.Fatalf("iteration %d: observed root %d exceeds last inserted key %d", i, root.key, lastInserted)
		}

		next := &stressElem{key: rng.Int63n(1 << 40)}
		h.Delete(root.idx)
		h.Insert(next)
		lastInserted = next.key
	}

	var prev int64 = 1<<63 - 1
	count := 0
	for h.Len() > 0 {
		root, _ := h.Root()
		if root.key > prev {
			t.Fatalf("drain not monotonic: %d came after %d", root.key, prev)
		}
		prev = root.key
		h.Delete(root.idx)
		count++
	}
	if count != nElems {
		t.Fatalf("drained %d elements, want %d", count, nElems)
	}
	h.Destroy()
}
