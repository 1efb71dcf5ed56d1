// SPDX-License-Identifier: MIT
/*
Package audio binds a graph.Context to a real PortAudio output stream.

Thread Safety:
  - The render loop lives entirely inside graph.RealtimeDriver; this
    package only owns the device stream that drains the ring it fills.
  - Device switches are guarded by a mutex since they are called from
    CLI/TUI goroutines, never from the audio callback itself.
  - The active recorder is an atomic pointer, not mutex-guarded: it is
    read on the render goroutine once per block (observeBlock) and must
    never contend with the mutex Switch holds while blocking on the
    render goroutine's own shutdown.
*/
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/the-byte-bender/graphaudio/internal/config"
	"github.com/the-byte-bender/graphaudio/internal/graph"
	"github.com/the-byte-bender/graphaudio/internal/record"
)

// Engine owns the full playback path: a graph.Context rendering through
// a graph.RealtimeDriver into a graph.RingBuffer, and a PortAudio output
// stream draining that ring on the device's own callback thread.
type Engine struct {
	config *config.Config
	ctx    *graph.Context
	ring   *graph.RingBuffer
	driver *graph.RealtimeDriver

	mu     sync.Mutex
	device *portaudio.DeviceInfo
	stream *portaudio.Stream

	// recorder is read on the render goroutine (observeBlock, once per
	// block) and written from CLI/TUI goroutines (StartRecording/
	// StopRecording) and e.mu is held across Switch's call into
	// driver.Stop, which blocks until the render goroutine exits. Keeping
	// recorder off e.mu means observeBlock never contends with it, so a
	// render loop parked inside observeBlock can always reach its next
	// stop-check instead of deadlocking Switch.
	recorder atomic.Pointer[record.Writer]
}

// NewEngine builds an Engine around ctx, which the caller has already
// populated with whatever node graph it wants rendered.
func NewEngine(cfg *config.Config, ctx *graph.Context) (*Engine, error) {
	device, err := OutputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	// Five device periods of headroom absorbs normal scheduling jitter
	// between the render goroutine and the device callback.
	ring := graph.NewRingBuffer(cfg.Channels, cfg.FramesPerBuffer*5)
	driver := graph.NewRealtimeDriver(ctx, ring)

	e := &Engine{
		config: cfg,
		ctx:    ctx,
		ring:   ring,
		driver: driver,
		device: device,
	}
	driver.SetBlockObserver(e.observeBlock)
	return e, nil
}

// Start opens the output stream on the currently selected device and
// launches the render loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	latency := e.device.DefaultHighOutputLatency
	if e.config.LowLatency {
		latency = e.device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels,
			Device:   e.device,
			Latency:  latency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.fillOutputBuffer)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	e.stream = stream
	e.driver.Start()
	return nil
}

// Stop halts the render loop and closes the output stream. The Engine
// can be Start-ed again afterward.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	e.driver.Stop()
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	return nil
}

// Switch moves playback to a different output device without losing the
// context's render state: the graph keeps advancing through the same
// RealtimeDriver and RingBuffer, only the device-side stream is torn
// down and reopened.
func (e *Engine) Switch(deviceID int) error {
	device, err := OutputDevice(deviceID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wasRunning := e.stream != nil
	if wasRunning {
		if err := e.stopLocked(); err != nil {
			return err
		}
	}
	e.device = device
	e.config.DeviceID = deviceID
	if wasRunning {
		return e.startLocked()
	}
	return nil
}

// fillOutputBuffer is the PortAudio callback; it must never allocate or
// block.
func (e *Engine) fillOutputBuffer(out []float32) {
	e.ring.DrainInto(out)
}

// observeBlock runs on the render goroutine right after each block is
// rendered, before it reaches the ring. It tees the same audio to a WAV
// file when recording is active.
func (e *Engine) observeBlock(block []float32, channels int) {
	rec := e.recorder.Load()
	if rec == nil {
		return
	}
	if err := rec.WriteInterleaved(block, channels); err != nil {
		// The render thread cannot surface this error synchronously;
		// drop the recorder so a broken file doesn't wedge playback.
		e.recorder.CompareAndSwap(rec, nil)
	}
}

// StartRecording begins writing every subsequently rendered block to a
// WAV file at path. Calling it again swaps in a new file, closing the
// previous one, without stopping playback.
func (e *Engine) StartRecording(path string) error {
	w, err := record.NewWriter(path, int(e.config.SampleRate), e.config.Channels)
	if err != nil {
		return err
	}
	prev := e.recorder.Swap(w)
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// StopRecording closes the active recording file, if any.
func (e *Engine) StopRecording() error {
	w := e.recorder.Swap(nil)
	if w == nil {
		return nil
	}
	return w.Close()
}

// Close stops playback and recording and releases the PortAudio device.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return fmt.Errorf("audio: closing recorder: %w", err)
	}
	return e.Stop()
}

// Context returns the graph.Context this engine renders.
func (e *Engine) Context() *graph.Context { return e.ctx }

// Ring returns the ring buffer the render driver fills and the device
// callback drains, for telemetry consumers that want underflow counts.
func (e *Engine) Ring() *graph.RingBuffer { return e.ring }

// Driver returns the realtime driver pumping Context into Ring.
func (e *Engine) Driver() *graph.RealtimeDriver { return e.driver }
