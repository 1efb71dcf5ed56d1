// SPDX-License-Identifier: MIT
// Package telemetry broadcasts the render graph's own health — buffer
// pool pressure, ring underflows, block cadence — to external observers.
// It is a monitoring side-channel: nothing under internal/graph imports
// this package, and a process with no telemetry consumers attached pays
// nothing beyond the cost of reading a few atomics each tick.
package telemetry

import (
	"time"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// Stats is one point-in-time snapshot of engine health.
type Stats struct {
	Timestamp   time.Time `json:"timestamp"`
	BlockNumber int64     `json:"block_number"`
	Generation  int64     `json:"generation"`
	Rents       int64     `json:"pool_rents"`
	Returns     int64     `json:"pool_returns"`
	Outstanding int64     `json:"pool_outstanding"`
	Underflows  int64     `json:"ring_underflows"`
}

// Source produces the values a Stats snapshot is built from. The graph
// package's own types satisfy it without any wiring: Snapshot just needs
// something that can answer these four questions.
type Source struct {
	Ctx    *graph.Context
	Ring   *graph.RingBuffer
	Driver *graph.RealtimeDriver
}

// Snapshot reads the current health of everything in src. Ring and Driver
// may be nil — a renderer with no realtime output path still has a pool
// and a block count worth reporting.
func (src Source) Snapshot() Stats {
	s := Stats{Timestamp: time.Now()}
	if src.Ctx != nil {
		s.BlockNumber = src.Ctx.CurrentBlock()
		pool := src.Ctx.Pool().Stats()
		s.Rents = pool.Rents
		s.Returns = pool.Returns
		s.Outstanding = pool.Outstanding
	}
	if src.Ring != nil {
		s.Underflows = src.Ring.Underflows()
	}
	if src.Driver != nil {
		s.Generation = src.Driver.Generation()
	}
	return s
}
