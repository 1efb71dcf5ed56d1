// SPDX-License-Identifier: MIT
package graph

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRealtimeDriverStartStopIsIdempotent(t *testing.T) {
	ctx := NewContext(48000)
	a := newConstNode(ctx, 1, 2)
	if err := a.Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	ring := NewRingBuffer(2, 512)
	d := NewRealtimeDriver(ctx, ring)

	d.Start()
	d.Start() // second Start must be a no-op, not a second goroutine

	time.Sleep(20 * time.Millisecond)
	d.Stop()
	d.Stop() // second Stop must be a no-op

	if ring.AvailableReadFrames() == 0 {
		t.Fatal("driver must have written at least one block before being stopped")
	}
}

func TestRealtimeDriverFillsRingWithRenderedAudio(t *testing.T) {
	ctx := NewContext(48000)
	a := newConstNode(ctx, 3, 1)
	if err := a.Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	ring := NewRingBuffer(2, 2048)
	d := NewRealtimeDriver(ctx, ring)

	d.Start()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	dst := make([]float32, 2*FramesPerBlock)
	n := d.ring.DrainInto(dst)
	if n == 0 {
		t.Fatal("expected at least one drained frame")
	}
	if dst[0] != 3 {
		t.Fatalf("drained sample = %v, want 3", dst[0])
	}
}

func TestRealtimeDriverBlockObserverSeesEveryRenderedBlock(t *testing.T) {
	ctx := NewContext(48000)
	a := newConstNode(ctx, 1, 1)
	if err := a.Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	ring := NewRingBuffer(2, 2048)
	d := NewRealtimeDriver(ctx, ring)

	var calls atomic.Int64
	d.SetBlockObserver(func(block []float32, channels int) {
		calls.Add(1)
	})

	d.Start()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	if calls.Load() == 0 {
		t.Fatal("block observer must be invoked at least once while the driver runs")
	}
}

func TestRealtimeDriverGenerationIncrementsPerStart(t *testing.T) {
	ctx := NewContext(48000)
	ring := NewRingBuffer(2, 512)
	d := NewRealtimeDriver(ctx, ring)

	if d.Generation() != 0 {
		t.Fatalf("Generation() before Start() = %d, want 0", d.Generation())
	}
	d.Start()
	d.Stop()
	if d.Generation() != 1 {
		t.Fatalf("Generation() after one Start/Stop = %d, want 1", d.Generation())
	}
	d.Start()
	d.Stop()
	if d.Generation() != 2 {
		t.Fatalf("Generation() after two Start/Stop cycles = %d, want 2", d.Generation())
	}
}
