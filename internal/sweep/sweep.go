// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sweep runs periodic maintenance jobs against a vbh heap on
// a gocron schedule: draining every element that has become "due" by
// some caller-defined measure (a deadline, a TTL, a staleness
// threshold) without the caller having to poll the heap itself.
package sweep

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ClusterCockpit/cc-logquery/pkg/log"
	"github.com/ClusterCockpit/cc-logquery/pkg/vbh"
)

// Runner owns a gocron scheduler and the jobs registered on it.
type Runner struct {
	sched gocron.Scheduler
}

// New creates a Runner with a fresh, unstarted scheduler.
func New() (*Runner, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Runner{sched: s}, nil
}

// Every registers task to run on a fixed interval. The first run
// happens after the first interval elapses, matching gocron's
// DurationJob semantics.
func (r *Runner) Every(interval time.Duration, name string, task func()) error {
	_, err := r.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
	)
	if err != nil {
		log.Errorf("sweep: could not register job %q: %s", name, err.Error())
		return err
	}
	log.Infof("sweep: registered job %q every %s", name, interval)
	return nil
}

// Start begins running registered jobs. It does not block.
func (r *Runner) Start() {
	r.sched.Start()
}

// Shutdown stops the scheduler and waits for any in-flight job to
// finish.
func (r *Runner) Shutdown() error {
	return r.sched.Shutdown()
}

// DrainDue pops elements from the root of h for as long as due
// reports true, invoking visit on each right after it is deleted from
// the heap. It stops at the first element that is not due, or when h is
// empty. The comparator h was built with determines which end of the
// priority order "due" elements accumulate at; a heap ordered by
// ascending deadline, for instance, always surfaces its most overdue
// element at the root.
func DrainDue[T any](h *vbh.Heap[T], idx func(T) uint32, due func(T) bool, visit func(T)) int {
	n := 0
	for {
		root, ok := h.Root()
		if !ok || !due(root) {
			return n
		}
		h.Delete(idx(root))
		visit(root)
		n++
	}
}
