// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package regexcache caches compiled regular expressions keyed by
// their source text, so that a query language whose grammar re-parses
// the same handful of match patterns over and over (dashboards,
// saved searches, repeated tailing of the same query) does not pay
// the compile cost on every parse.
//
// The eviction policy, doubly linked bookkeeping, and the
// condition-variable coordination of concurrent misses on the same
// key are all adapted from the LRU cache in pkg/lrucache: a miss
// claims its key with a not-yet-ready placeholder entry before the
// lock is released, so a second goroutine racing on the same key
// finds the placeholder and waits for the first goroutine's compile
// to finish instead of compiling the pattern a second time.
package regexcache

import (
	"fmt"
	"sync"

	"github.com/ClusterCockpit/cc-logquery/pkg/vxp"
)

type entry struct {
	key   string
	value vxp.Regexp
	err   error
	ready bool // false while a compile for this key is in flight

	next, prev *entry
}

// Cache is a bounded, most-recently-used-first cache of compiled
// regular expressions. The zero value is not usable; construct one
// with New. A Cache is safe for concurrent use.
type Cache struct {
	mutex      sync.Mutex
	cond       *sync.Cond
	maxEntries int
	entries    map[string]*entry
	head, tail *entry

	compile vxp.RegexCompiler
}

// New returns a cache that compiles misses with compile and holds at
// most maxEntries compiled expressions at a time.
func New(compile vxp.RegexCompiler, maxEntries int) *Cache {
	c := &Cache{
		maxEntries: maxEntries,
		entries:    map[string]*entry{},
		compile:    compile,
	}
	c.cond = sync.NewCond(&c.mutex)
	return c
}

func cacheKey(source string, caseInsensitive bool) string {
	if caseInsensitive {
		return "i:" + source
	}
	return "s:" + source
}

// Compile returns the compiled regex for source, compiling and
// caching it on a miss. Concurrent calls for the same (source,
// caseInsensitive) key never compile more than once: the second and
// later callers block until the first call's result is ready, then
// share it.
func (c *Cache) Compile(source string, caseInsensitive bool) (vxp.Regexp, error) {
	key := cacheKey(source, caseInsensitive)

	c.mutex.Lock()
	if e, ok := c.entries[key]; ok {
		for !e.ready {
			c.cond.Wait()
		}
		if e.err == nil && e != c.head {
			c.unlink(e)
			c.insertFront(e)
		}
		c.mutex.Unlock()
		return e.value, e.err
	}

	// Claim the key with a not-yet-ready placeholder before releasing
	// the lock, so a concurrent caller waits instead of compiling too.
	e := &entry{key: key}
	c.entries[key] = e
	c.mutex.Unlock()

	value, err := c.compile(source, caseInsensitive)

	c.mutex.Lock()
	e.value, e.err, e.ready = value, err, true
	if err == nil {
		c.insertFront(e)
		for len(c.entries) > c.maxEntries && c.tail != nil {
			c.evict(c.tail)
		}
	} else {
		// Don't cache failures: remove the placeholder so the next
		// call for this key retries the compile.
		delete(c.entries, key)
	}
	c.cond.Broadcast()
	c.mutex.Unlock()

	return value, err
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

func (c *Cache) insertFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if e.next != nil {
		e.next.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e == c.head {
		c.head = e.next
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if e == c.tail {
		c.tail = e.prev
	}
}

func (c *Cache) evict(e *entry) {
	if _, ok := c.entries[e.key]; !ok {
		panic(fmt.Sprintf("REGEXCACHE/CACHE > evicting unknown key %q", e.key))
	}
	c.unlink(e)
	delete(c.entries, e.key)
}
