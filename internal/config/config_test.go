// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ClusterCockpit/cc-logquery/pkg/vbh"
)

func resetKeys() {
	Keys = Config{HeapLayout: "vm-aware", RegexCacheSize: 256, LogLevel: "info"}
}

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	resetKeys()
	if err := Init(filepath.Join(t.TempDir(), "does-not-exist.json")); err != nil {
		t.Fatal(err)
	}
	if Keys.HeapLayout != "vm-aware" {
		t.Fatalf("expected default layout, got %q", Keys.HeapLayout)
	}
}

func TestInitValidConfig(t *testing.T) {
	resetKeys()
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"tagCatalogPath":"tags.json","caseInsensitiveRegex":true,"heapLayout":"classical","regexCacheSize":10,"logLevel":"debug","logDate":true}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(path); err != nil {
		t.Fatal(err)
	}
	if Keys.TagCatalogPath != "tags.json" || !Keys.CaseInsensitiveRegex ||
		Keys.HeapLayout != "classical" || Keys.RegexCacheSize != 10 {
		t.Fatalf("unexpected config: %+v", Keys)
	}
	if Keys.Layout() != vbh.LayoutClassical {
		t.Fatalf("Layout() = %v, want LayoutClassical", Keys.Layout())
	}
}

func TestInitRejectsUnknownField(t *testing.T) {
	resetKeys()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"notARealField": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestInitRejectsInvalidEnum(t *testing.T) {
	resetKeys()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"heapLayout":"bogus"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(path); err == nil {
		t.Fatal("expected schema validation error for invalid enum value")
	}
}
