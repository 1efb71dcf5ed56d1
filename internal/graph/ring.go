// SPDX-License-Identifier: MIT
package graph

import (
	"sync/atomic"

	"github.com/the-byte-bender/graphaudio/pkg/bitint"
)

// RingBuffer is a single-producer/single-consumer lock-free ring of
// interleaved float32 frames. The render thread is the sole producer; a
// device callback (or, in offline mode, nothing at all) is the sole
// consumer. All shared state lives in plain slices and atomic counters so
// the consumer side never triggers an allocation or touches anything the
// Go runtime's GC would need to scan beyond the fixed backing array.
//
// Capacity is expressed in frames; the buffer internally stores
// channels*frames float32 values. Per the realtime driver design, a ring
// sized to hold 5x the device period absorbs normal scheduling jitter
// between the render thread and the device callback without audible
// glitches.
type RingBuffer struct {
	data     []float32
	channels int
	capFrames int64 // power of two, frames

	writeIdx atomic.Int64 // frames written, monotonic
	readIdx  atomic.Int64 // frames read, monotonic

	underflows atomic.Int64
}

// NewRingBuffer builds a ring sized to hold at least minFrames frames of
// channels-channel audio, rounded up to the next power of two. Index
// wraparound is computed with %.
func NewRingBuffer(channels, minFrames int) *RingBuffer {
	cap := bitint.NextPowerOfTwo(minFrames)
	return &RingBuffer{
		data:      make([]float32, cap*channels),
		channels:  channels,
		capFrames: int64(cap),
	}
}

// AvailableWriteFrames returns how many frames the producer may write
// without overrunning the consumer.
func (r *RingBuffer) AvailableWriteFrames() int {
	used := r.writeIdx.Load() - r.readIdx.Load()
	avail := r.capFrames - used
	if avail < 0 {
		return 0
	}
	return int(avail)
}

// AvailableReadFrames returns how many frames the consumer may drain.
func (r *RingBuffer) AvailableReadFrames() int {
	n := r.writeIdx.Load() - r.readIdx.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// WriteFrames copies n frames of interleaved src (length n*channels) into
// the ring, advancing the write index. Callers must have confirmed via
// AvailableWriteFrames that there is room; WriteFrames does not block and
// will silently overwrite unread data if n exceeds availability — the
// producer (render thread) is expected to check first, per the realtime
// driver's loop contract.
func (r *RingBuffer) WriteFrames(src []float32, n int) {
	if n <= 0 {
		return
	}
	start := r.writeIdx.Load() % r.capFrames
	r.copyIn(src, n, start)
	r.writeIdx.Add(int64(n))
}

func (r *RingBuffer) copyIn(src []float32, n int, startFrame int64) {
	ch := r.channels
	capF := r.capFrames
	firstFrames := capF - startFrame
	if int64(n) <= firstFrames {
		copy(r.data[startFrame*int64(ch):(startFrame+int64(n))*int64(ch)], src[:n*ch])
		return
	}
	copy(r.data[startFrame*int64(ch):capF*int64(ch)], src[:int(firstFrames)*ch])
	remaining := n - int(firstFrames)
	copy(r.data[0:remaining*ch], src[int(firstFrames)*ch:n*ch])
}

// DrainInto drains up to len(dst)/channels frames into dst, a flat
// interleaved float32 buffer owned by the caller (typically the device
// callback's own buffer). It handles wraparound with at most two copies
// and returns the number of frames actually drained. On underflow — fewer
// frames available than requested — the remainder of dst is filled with
// silence and the underflow counter is incremented; there is no
// error-raising path from this method, matching the device callback's
// contract of never failing audibly.
func (r *RingBuffer) DrainInto(dst []float32) int {
	ch := r.channels
	wantFrames := len(dst) / ch
	avail := r.AvailableReadFrames()
	frames := wantFrames
	underflowed := false
	if frames > avail {
		frames = avail
		underflowed = true
	}

	if frames > 0 {
		start := r.readIdx.Load() % r.capFrames
		r.copyOut(dst, frames, start)
		r.readIdx.Add(int64(frames))
	}

	if underflowed {
		for i := frames * ch; i < len(dst); i++ {
			dst[i] = 0
		}
		r.underflows.Add(1)
	}

	return frames
}

func (r *RingBuffer) copyOut(dst []float32, n int, startFrame int64) {
	ch := r.channels
	capF := r.capFrames
	firstFrames := capF - startFrame
	if int64(n) <= firstFrames {
		copy(dst[:n*ch], r.data[startFrame*int64(ch):(startFrame+int64(n))*int64(ch)])
		return
	}
	copy(dst[:int(firstFrames)*ch], r.data[startFrame*int64(ch):capF*int64(ch)])
	remaining := n - int(firstFrames)
	copy(dst[int(firstFrames)*ch:n*ch], r.data[0:remaining*ch])
}

// Underflows reports how many times DrainInto has had to pad with silence.
func (r *RingBuffer) Underflows() int64 {
	return r.underflows.Load()
}

// Channels returns the channel count the ring was constructed with.
func (r *RingBuffer) Channels() int { return r.channels }
