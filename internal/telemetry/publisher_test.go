// SPDX-License-Identifier: MIT
package telemetry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

type countingSink struct {
	calls atomic.Int64
	fail  bool
}

func (s *countingSink) Send(Stats) error {
	s.calls.Add(1)
	if s.fail {
		return errTestSink
	}
	return nil
}

var errTestSink = &sinkError{"forced failure"}

type sinkError struct{ msg string }

func (e *sinkError) Error() string { return e.msg }

func TestPublisherFansOutToEverySink(t *testing.T) {
	ctx := graph.NewContext(48000)
	src := Source{Ctx: ctx}

	p := NewPublisher(src, 5*time.Millisecond)
	a := &countingSink{}
	b := &countingSink{fail: true}
	p.Attach(a)
	p.Attach(b)

	p.Start()
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	if a.calls.Load() == 0 {
		t.Fatal("expected at least one Send on the successful sink")
	}
	if b.calls.Load() == 0 {
		t.Fatal("expected the failing sink to still be invoked every tick")
	}
}

func TestPublisherStopIsIdempotent(t *testing.T) {
	ctx := graph.NewContext(48000)
	p := NewPublisher(Source{Ctx: ctx}, 5*time.Millisecond)
	p.Start()
	p.Stop()
	p.Stop()
}
