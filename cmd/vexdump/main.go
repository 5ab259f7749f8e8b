// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vexdump parses a query given on the command line against a
// tag catalog and prints the resulting AST, or the parse error.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/ClusterCockpit/cc-logquery/internal/config"
	"github.com/ClusterCockpit/cc-logquery/internal/regexcache"
	"github.com/ClusterCockpit/cc-logquery/internal/tagcatalog"
	"github.com/ClusterCockpit/cc-logquery/pkg/log"
	"github.com/ClusterCockpit/cc-logquery/pkg/vxp"
)

func main() {
	var flagConfigFile string
	var flagGops bool

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the global config options by those specified in `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("config.Init failed: %s", err.Error())
	}
	log.SetLogLevel(config.Keys.LogLevel)
	log.SetLogDateTime(config.Keys.LogDate)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vexdump [flags] <query>")
		os.Exit(2)
	}
	query := flag.Arg(0)

	var catalog *tagcatalog.Catalog
	if config.Keys.TagCatalogPath != "" {
		f, err := os.Open(config.Keys.TagCatalogPath)
		if err != nil {
			log.Fatalf("opening tag catalog: %s", err.Error())
		}
		defer f.Close()
		catalog, err = tagcatalog.Load(f)
		if err != nil {
			log.Fatalf("loading tag catalog: %s", err.Error())
		}
	}

	cache := regexcache.New(regexcache.Compile, config.Keys.RegexCacheSize)

	var cat vxp.Catalog
	if catalog != nil {
		cat = catalog
	}

	vex, err := vxp.Parse(query, cat,
		vxp.WithOptions(vxp.Options{CaseInsensitiveRegex: config.Keys.CaseInsensitiveRegex}),
		vxp.WithCompiler(cache.Compile),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %s\n", err.Error())
		os.Exit(1)
	}
	defer vxp.Free(vex)

	vxp.PrintTree(os.Stdout, vex, cat)
}
