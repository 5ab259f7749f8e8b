// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package regexcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ClusterCockpit/cc-logquery/pkg/vxp"
)

func TestCompileCachesByPatternAndCase(t *testing.T) {
	calls := 0
	counting := func(source string, caseInsensitive bool) (vxp.Regexp, error) {
		calls++
		return Compile(source, caseInsensitive)
	}
	c := New(counting, 10)

	re1, err := c.Compile("^/api", false)
	if err != nil {
		t.Fatal(err)
	}
	re2, err := c.Compile("^/api", false)
	if err != nil {
		t.Fatal(err)
	}
	if re1 != re2 {
		t.Error("expected the same compiled value for the same key")
	}
	if calls != 1 {
		t.Errorf("expected compiler to run once, ran %d times", calls)
	}

	if _, err := c.Compile("^/api", true); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected case-insensitive variant to be a distinct key, calls=%d", calls)
	}
}

func TestCompilePropagatesEngineError(t *testing.T) {
	c := New(Compile, 10)
	if _, err := c.Compile("(unterminated", false); err == nil {
		t.Error("expected malformed pattern to fail to compile")
	}
}

func TestCompileEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(Compile, 2)

	mustCompile(t, c, "a")
	mustCompile(t, c, "b")
	mustCompile(t, c, "a") // touch "a" so "b" becomes the LRU victim
	mustCompile(t, c, "c") // evicts "b"

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.entries[cacheKey("b", false)]; ok {
		t.Error("expected 'b' to have been evicted")
	}
	if _, ok := c.entries[cacheKey("a", false)]; !ok {
		t.Error("expected 'a' to still be cached")
	}
}

func mustCompile(t *testing.T, c *Cache, pattern string) {
	t.Helper()
	if _, err := c.Compile(pattern, false); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentCompileOfSameKey(t *testing.T) {
	var calls int64
	counting := func(source string, caseInsensitive bool) (vxp.Regexp, error) {
		atomic.AddInt64(&calls, 1)
		return Compile(source, caseInsensitive)
	}
	c := New(counting, 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Compile("^shared$", false); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Errorf("expected a single cached entry, got %d", c.Len())
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Errorf("expected the underlying compiler to run exactly once, ran %d times", calls)
	}
}

func TestConcurrentCompileFailurePropagatesToAllWaiters(t *testing.T) {
	var calls int64
	counting := func(source string, caseInsensitive bool) (vxp.Regexp, error) {
		atomic.AddInt64(&calls, 1)
		return Compile(source, caseInsensitive)
	}
	c := New(counting, 100)

	var wg sync.WaitGroup
	errs := make([]error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Compile("(unterminated", false)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			t.Errorf("waiter %d: expected malformed pattern to fail to compile", i)
		}
	}
	if c.Len() != 0 {
		t.Errorf("expected a failed compile not to be cached, got %d entries", c.Len())
	}
}

func TestMatchString(t *testing.T) {
	re, err := Compile("^/api", false)
	if err != nil {
		t.Fatal(err)
	}
	gr, ok := re.(interface{ MatchString(string) bool })
	if !ok {
		t.Fatal("expected MatchString capability")
	}
	if !gr.MatchString("/api/v1") {
		t.Error("expected match")
	}
	if gr.MatchString("/other") {
		t.Error("expected no match")
	}
	fmt.Sprint(re) // exercise String()
}
