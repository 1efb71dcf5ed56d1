// SPDX-License-Identifier: MIT
package graph

import (
	"sync/atomic"
)

// RealtimeDriver pumps a context into a RingBuffer one FramesPerBlock
// block at a time, staying ahead of a device callback draining the same
// ring on another goroutine. It owns no device or stream; binding a ring
// to actual hardware is the caller's concern (see internal/audio).
type RealtimeDriver struct {
	ctx        *Context
	ring       *RingBuffer
	observer   func(block []float32, channels int)
	running    atomic.Bool
	generation atomic.Int64
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewRealtimeDriver returns a driver that renders ctx into ring. ring's
// channel count must equal the interleaved channel count the caller wants
// out of the graph; channels beyond the graph's own output are silence.
func NewRealtimeDriver(ctx *Context, ring *RingBuffer) *RealtimeDriver {
	return &RealtimeDriver{ctx: ctx, ring: ring}
}

// SetBlockObserver registers fn to be called with each block's
// interleaved samples immediately after it is rendered, before it is
// written to the ring — e.g. to tee the same audio to a WAV writer
// without rendering it a second time. fn must not block; it runs on the
// render goroutine between blocks. Pass nil to detach. Must not be
// called while the driver is running.
func (d *RealtimeDriver) SetBlockObserver(fn func(block []float32, channels int)) {
	d.observer = fn
}

// Start launches the render loop on a new goroutine. It is a no-op if
// already running.
func (d *RealtimeDriver) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.generation.Add(1)
	go d.loop()
}

// Generation returns how many times the render loop has been started.
// Telemetry consumers use it as a stand-in for a render thread identity
// since Go does not expose OS thread ids across a goroutine's lifetime.
func (d *RealtimeDriver) Generation() int64 {
	return d.generation.Load()
}

// Stop signals the render loop to exit and blocks until it has. It is a
// no-op if not running.
func (d *RealtimeDriver) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	close(d.stopCh)
	<-d.doneCh
}

func (d *RealtimeDriver) loop() {
	defer close(d.doneCh)

	channels := d.ring.Channels()
	scratch := d.ctx.Pool().RentScratch(channels)
	defer d.ctx.Pool().ReturnScratch(channels, scratch)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		if d.ring.AvailableWriteFrames() < FramesPerBlock {
			continue
		}

		if err := d.ctx.ProcessBlockInterleaved(scratch, channels); err != nil {
			if hook := d.ctx.errorHook; hook != nil {
				hook(err)
			}
			continue
		}

		if d.observer != nil {
			d.observer(scratch, channels)
		}

		d.ring.WriteFrames(scratch, FramesPerBlock)
	}
}
