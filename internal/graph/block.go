// SPDX-License-Identifier: MIT
package graph

// FramesPerBlock is the compile-time constant block size, measured in
// sample frames. Every block flowing through the graph has exactly this
// many frames per channel.
const FramesPerBlock = 128

// MinChannels and MaxChannels bound a block's channel count.
const (
	MinChannels = 1
	MaxChannels = 32
)

// Block is a fixed-size multi-channel sample container: the unit of data
// flow between nodes. All channels hold exactly FramesPerBlock samples.
//
// Silent is an advisory hint, not a guarantee: silent=true implies every
// sample is zero, but silent=false does not require any sample to be
// non-zero. It exists so downstream consumers can skip processing on
// silent input without scanning every sample.
type Block struct {
	channels [][FramesPerBlock]float32
	numCh    int
	Silent   bool
}

// NewBlock allocates a block with ch channels, zeroed and marked silent.
func NewBlock(ch int) *Block {
	b := &Block{
		channels: make([][FramesPerBlock]float32, ch),
		numCh:    ch,
		Silent:   true,
	}
	return b
}

// Channels returns the number of channels this block was allocated with.
func (b *Block) Channels() int { return b.numCh }

// Chan returns the raw sample slice for channel i. Callers on the render
// thread may write through it directly; doing so does not update Silent —
// call MarkNonSilent explicitly.
func (b *Block) Chan(i int) *[FramesPerBlock]float32 {
	return &b.channels[i]
}

// Clear zeroes every channel and sets Silent. This is the only path,
// besides a fresh rent from the pool, that may set Silent back to true.
func (b *Block) Clear() {
	for i := range b.channels {
		for j := range b.channels[i] {
			b.channels[i][j] = 0
		}
	}
	b.Silent = true
}

// MarkNonSilent clears the silent flag. Silent is one-directional outside
// of Clear: once a non-silent source has contributed to a block, the flag
// stays false even if the resulting samples are coincidentally zero.
func (b *Block) MarkNonSilent() {
	b.Silent = false
}

// resize changes the channel count in place, reusing the backing array
// when it is already large enough. Used by the pool to avoid reallocating
// when recycling a block for a different channel count would otherwise be
// needed; the pool itself keys by channel count so this mostly exists for
// ports that must rebuild a leased buffer after a channel-count change.
func (b *Block) resize(ch int) {
	if cap(b.channels) >= ch {
		b.channels = b.channels[:ch]
	} else {
		b.channels = make([][FramesPerBlock]float32, ch)
	}
	b.numCh = ch
	for i := range b.channels {
		for j := range b.channels[i] {
			b.channels[i][j] = 0
		}
	}
	b.Silent = true
}
