// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the JSON configuration shared by the cmd/
// tools built around the vbh and vxp packages.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"
	"net/url"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ClusterCockpit/cc-logquery/pkg/log"
	"github.com/ClusterCockpit/cc-logquery/pkg/vbh"
)

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

// Config is the on-disk configuration for the vbhbench and vexdump
// command-line tools.
type Config struct {
	TagCatalogPath       string `json:"tagCatalogPath"`
	CaseInsensitiveRegex bool   `json:"caseInsensitiveRegex"`
	HeapLayout           string `json:"heapLayout"`
	RegexCacheSize       int    `json:"regexCacheSize"`
	LogLevel             string `json:"logLevel"`
	LogDate              bool   `json:"logDate"`
}

// Keys holds the active configuration, populated by Init. Its zero
// value (before Init is called) is the set of defaults below.
var Keys = Config{
	HeapLayout:     "vm-aware",
	RegexCacheSize: 256,
	LogLevel:       "info",
}

// Layout returns the vbh.Layout selected by Keys.HeapLayout.
func (c Config) Layout() vbh.Layout {
	if c.HeapLayout == "classical" {
		return vbh.LayoutClassical
	}
	return vbh.LayoutVMAware
}

// Init reads and validates the configuration file at path, merging it
// over the defaults in Keys. A missing file is not an error; the
// defaults are used as-is.
func Init(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	schema, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return err
	}
	var v any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		log.Errorf("config.Init() - failed to decode %v", err)
		return err
	}
	if err := schema.Validate(v); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}
	return nil
}
