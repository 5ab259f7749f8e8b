// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vbhbench is the VM-aware heap's test driver: it builds a
// large heap of random keys, then repeatedly replaces the root for a
// configurable number of iterations, printing progress counters to
// standard error.
package main

import (
	"flag"
	"math/rand"
	"sync"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/ClusterCockpit/cc-logquery/internal/config"
	"github.com/ClusterCockpit/cc-logquery/internal/sweep"
	"github.com/ClusterCockpit/cc-logquery/pkg/log"
	"github.com/ClusterCockpit/cc-logquery/pkg/vbh"
)

// sweepWatermark is the priority at or above which the periodic sweep
// job (see -sweep-every) considers an element due for draining.
const sweepWatermark = int64(1) << 39

type element struct {
	key int64
	idx uint32
}

func main() {
	var flagConfigFile string
	var flagGops bool
	var flagElems, flagIters int
	var flagSeed int64
	var flagClassical bool
	var flagSweepEvery time.Duration

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the global config options by those specified in `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.IntVar(&flagElems, "n", 131101, "Number of elements to build the heap with")
	flag.IntVar(&flagIters, "m", 500083, "Number of root-replacement iterations to run")
	flag.Int64Var(&flagSeed, "seed", 1, "Random seed")
	flag.BoolVar(&flagClassical, "classical", false, "Use the classical parent=u/2 layout instead of the VM-aware one")
	flag.DurationVar(&flagSweepEvery, "sweep-every", 0, "Run a background internal/sweep job on this interval, draining elements at or above the sweep watermark (0 disables)")
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

	layout := config.Keys.Layout()
	if flagClassical {
		layout = vbh.LayoutClassical
	}

	run(flagElems, flagIters, flagSeed, layout, flagSweepEvery)
}

func run(nElems, nIters int, seed int64, layout vbh.Layout, sweepEvery time.Duration) {
	rng := rand.New(rand.NewSource(seed))

	h := vbh.New(
		func(a, b *element) bool { return a.key > b.key },
		func(e *element, idx uint32) { e.idx = idx },
		vbh.WithLayout(layout),
	)

	// mu guards every access to h: vbh.Heap itself is single-threaded,
	// so the background sweep job below and the main loop must
	// serialize through this lock rather than the heap package adding
	// any locking of its own.
	var mu sync.Mutex

	if sweepEvery > 0 {
		runner, err := sweep.New()
		if err != nil {
			log.Fatalf("sweep.New failed: %s", err.Error())
		}
		err = runner.Every(sweepEvery, "drain-high-priority", func() {
			mu.Lock()
			defer mu.Unlock()
			n := sweep.DrainDue(h,
				func(e *element) uint32 { return e.idx },
				func(e *element) bool { return e.key >= sweepWatermark },
				func(e *element) {},
			)
			if n > 0 {
				log.Infof("vbhbench: sweep drained %d elements at or above watermark %d", n, sweepWatermark)
			}
		})
		if err != nil {
			log.Fatalf("sweep.Runner.Every failed: %s", err.Error())
		}
		runner.Start()
		defer func() {
			if err := runner.Shutdown(); err != nil {
				log.Errorf("vbhbench: sweep.Runner.Shutdown failed: %s", err.Error())
			}
		}()
	}

	log.Infof("vbhbench: building %d elements", nElems)
	for i := 0; i < nElems; i++ {
		mu.Lock()
		h.Insert(&element{key: rng.Int63n(1 << 40)})
		mu.Unlock()
	}

	// Throttle progress logging rather than the heap operations
	// themselves: the point is to see how the run is going, not to
	// simulate a rate-limited caller.
	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

	log.Infof("vbhbench: running %d root-replacement iterations", nIters)
	for i := 0; i < nIters; i++ {
		mu.Lock()
		root, ok := h.Root()
		if !ok {
			mu.Unlock()
			log.Fatal("vbhbench: heap unexpectedly empty")
		}
		next := &element{key: rng.Int63n(1 << 40)}
		h.Delete(root.idx)
		h.Insert(next)
		mu.Unlock()

		if limiter.Allow() {
			log.Infof("vbhbench: iteration %d/%d, root key %d", i+1, nIters, root.key)
		}
	}

	mu.Lock()
	log.Infof("vbhbench: draining %d elements", h.Len())
	drained := 0
	for h.Len() > 0 {
		root, _ := h.Root()
		h.Delete(root.idx)
		drained++
	}
	mu.Unlock()
	log.Infof("vbhbench: done, drained %d elements", drained)
}
