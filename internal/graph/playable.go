// SPDX-License-Identifier: MIT
package graph

import "sync/atomic"

// PlayableBuffer is an immutable, planar multi-channel sample buffer a
// BufferSourceNode-like kind plays back. It is built once by a decoder,
// published with an acquire/release barrier, and never mutated again —
// any number of source nodes may share and read the same PlayableBuffer
// concurrently with no locking.
type PlayableBuffer struct {
	channels         int
	frames           int
	sourceSampleRate float64
	data             [][]float32 // one slice per channel, len==frames
	ready            atomic.Bool
}

// NewPlayableBuffer allocates an unready buffer with the given shape. The
// caller fills Data() channel slices directly, then calls MarkReady
// exactly once before handing the buffer to any node.
func NewPlayableBuffer(channels, frames int, sourceSampleRate float64) *PlayableBuffer {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}
	return &PlayableBuffer{
		channels:         channels,
		frames:           frames,
		sourceSampleRate: sourceSampleRate,
		data:             data,
	}
}

// MarkReady publishes the buffer with a release barrier: every write made
// before this call is visible to any goroutine that later observes
// Ready() true via the matching acquire load.
func (b *PlayableBuffer) MarkReady() {
	b.ready.Store(true)
}

// Ready reports whether the buffer has been published. A source node must
// check this before reading Data and treat an unready buffer as silence.
func (b *PlayableBuffer) Ready() bool {
	return b.ready.Load()
}

func (b *PlayableBuffer) Channels() int            { return b.channels }
func (b *PlayableBuffer) Frames() int              { return b.frames }
func (b *PlayableBuffer) SourceSampleRate() float64 { return b.sourceSampleRate }

// Channel returns the raw sample slice for channel c. Callers must not
// write to the returned slice after MarkReady has been called.
func (b *PlayableBuffer) Channel(c int) []float32 {
	if c < 0 || c >= b.channels {
		return nil
	}
	return b.data[c]
}
