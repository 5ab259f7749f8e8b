// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tagcatalog loads the finite set of known record tags a
// query can select on, and resolves tag-list globs against it for
// the vxp parser's LHS production.
package tagcatalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ClusterCockpit/cc-logquery/internal/util"
	"github.com/ClusterCockpit/cc-logquery/pkg/lrucache"
	"github.com/ClusterCockpit/cc-logquery/pkg/vxp"
)

// globTTL is effectively "forever": a Catalog's tag set never changes
// after Load, so a cached glob expansion is never stale.
const globTTL = 100 * 365 * 24 * time.Hour

type globResult struct {
	set vxp.TagSet
	err error
}

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchema
}

// ErrNoMatch, ErrAmbiguous and ErrMalformedGlob are the three glob
// expansion failure modes the vxp LHS production must distinguish.
var (
	ErrNoMatch       = errors.New("tag name matches zero tags")
	ErrAmbiguous     = errors.New("tag name is ambiguous")
	ErrMalformedGlob = errors.New("syntax error in tag name")
)

type tagDef struct {
	Name     string `json:"name"`
	category string
	id       int
}

// Catalog is a read-only, finite set of known tag names grouped into
// categories, some of which may be declared mutually exclusive so
// that a glob spanning more than one of them is rejected as
// ambiguous rather than silently unioned.
type Catalog struct {
	tags       []tagDef
	byName     map[string]int
	exclusive  [][]string
	categoryOf map[string]string
	globs      *lrucache.Cache
}

type document struct {
	Tags []struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"tags"`
	ExclusiveCategories [][]string `json:"exclusiveCategories"`
}

// Load reads and validates a catalog document (see
// schemas/tagcatalog.schema.json) and builds a Catalog from it.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	schema, err := jsonschema.Compile("embedFS://schemas/tagcatalog.schema.json")
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return nil, fmt.Errorf("tagcatalog: decode: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("tagcatalog: schema validation: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		byName:     make(map[string]int, len(doc.Tags)),
		categoryOf: make(map[string]string, len(doc.Tags)),
		exclusive:  doc.ExclusiveCategories,
		globs:      lrucache.New(1024),
	}
	for i, t := range doc.Tags {
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("tagcatalog: duplicate tag name %q", t.Name)
		}
		c.tags = append(c.tags, tagDef{Name: t.Name, category: t.Category, id: i})
		c.byName[t.Name] = i
		c.categoryOf[t.Name] = t.Category
	}

	categories := c.Categories()
	for _, group := range c.exclusive {
		for _, cat := range group {
			if !util.Contains(categories, cat) {
				return nil, fmt.Errorf("tagcatalog: exclusiveCategories references unknown category %q", cat)
			}
		}
	}

	return c, nil
}

// Name implements vxp.Catalog.
func (c *Catalog) Name(id int) string {
	if id < 0 || id >= len(c.tags) {
		return ""
	}
	return c.tags[id].Name
}

// Expand implements vxp.Catalog. A glob with no wildcard characters is
// an exact tag name lookup; otherwise it is matched against every
// known tag name with path.Match, the standard library's closest
// analog of a single-segment shell-style glob (no library in the
// surrounding stack offers name globbing, and path.Match's semantics
// - '*', '?' and bracket classes over a flat string - are exactly
// what a tag-name glob needs).
func (c *Catalog) Expand(glob string) (vxp.TagSet, error) {
	if id, ok := c.byName[glob]; ok {
		var set vxp.TagSet
		set.Set(id)
		return set, nil
	}

	// Wildcard expansion walks every tag with path.Match, which is
	// cheap for a single lookup but repeats across a query workload
	// that reuses the same tag-list globs; memoize by glob string.
	cached := c.globs.Get(glob, func() (interface{}, time.Duration, int) {
		return c.expandUncached(glob), globTTL, 1
	}).(globResult)
	return cached.set, cached.err
}

func (c *Catalog) expandUncached(glob string) globResult {
	var set vxp.TagSet
	matchedCategories := map[string]bool{}
	matched := 0
	for _, t := range c.tags {
		ok, err := path.Match(glob, t.Name)
		if err != nil {
			return globResult{err: fmt.Errorf("%w: %s", ErrMalformedGlob, err)}
		}
		if !ok {
			continue
		}
		set.Set(t.id)
		matchedCategories[t.category] = true
		matched++
	}
	if matched == 0 {
		return globResult{err: ErrNoMatch}
	}
	if c.crossesExclusiveCategories(matchedCategories) {
		return globResult{err: ErrAmbiguous}
	}
	return globResult{set: set}
}

func (c *Catalog) crossesExclusiveCategories(matched map[string]bool) bool {
	for _, group := range c.exclusive {
		hit := 0
		for _, cat := range group {
			if matched[cat] {
				hit++
			}
		}
		if hit > 1 {
			return true
		}
	}
	return false
}

// Categories returns every distinct category name, sorted, mainly for
// diagnostics and tests.
func (c *Catalog) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range c.tags {
		if !seen[t.category] {
			seen[t.category] = true
			out = append(out, t.category)
		}
	}
	sort.Strings(out)
	return out
}
