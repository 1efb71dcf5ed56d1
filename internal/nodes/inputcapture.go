// SPDX-License-Identifier: MIT
package nodes

import (
	"math"
	"sync/atomic"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// InputCaptureNode is a pass-through noise gate: while the peak absolute
// amplitude of a block stays at or below Threshold, the node's output is
// silence instead of its input. The peak scan is branchless, following
// the same shape as a classic fixed-point audio gate — a running max
// built from masked differences rather than a per-sample comparison
// branch — reinterpreting each float32 sample's bit pattern as its
// absolute-value ordering, since IEEE-754 magnitude bits order the same
// way as the values they represent for any non-negative float.
type InputCaptureNode struct {
	ctx  *graph.Context
	node *graph.Node

	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits, fraction of full scale in [0,1]
	open      atomic.Bool

	outBuf *graph.Block
}

// NewInputCaptureNode builds a single-input, single-output gate, enabled
// by default with a permissive threshold.
func NewInputCaptureNode(ctx *graph.Context) *InputCaptureNode {
	n := graph.NewNode(ctx, "input-capture", 1, 1)
	g := &InputCaptureNode{ctx: ctx, node: n}
	g.enabled.Store(true)
	g.threshold.Store(math.Float32bits(0.001))
	n.SetKind(g)
	return g
}

func (g *InputCaptureNode) Node() *graph.Node { return g.node }

func (g *InputCaptureNode) EnableGate()  { g.enabled.Store(true) }
func (g *InputCaptureNode) DisableGate() { g.enabled.Store(false) }

// SetThreshold sets the gate threshold as a fraction of full scale,
// clamped to [0,1]. The gate opens when a block's peak is strictly above
// it, so 0 opens for any non-zero sample and 1 keeps it closed for any
// signal within full scale.
func (g *InputCaptureNode) SetThreshold(frac float64) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	g.threshold.Store(math.Float32bits(float32(frac)))
}

func (g *InputCaptureNode) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// IsOpen reports whether the most recently processed block passed the
// gate. Safe to call from any thread.
func (g *InputCaptureNode) IsOpen() bool { return g.open.Load() }

func (g *InputCaptureNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	in := n.Inputs()[0].Buf()
	ch := 1
	if in != nil {
		ch = in.Channels()
	}

	if g.outBuf != nil {
		ctx.Pool().Return(g.outBuf)
	}
	out := ctx.Pool().Rent(ch)
	g.outBuf = out

	if in == nil {
		n.Outputs()[0].Publish(out)
		return nil
	}

	open := true
	if g.enabled.Load() {
		open = peakAmplitude(in) > math.Float32frombits(g.threshold.Load())
	}
	g.open.Store(open)

	if open && !in.Silent {
		out.MarkNonSilent()
		for c := 0; c < ch; c++ {
			copy(out.Chan(c)[:], in.Chan(c)[:])
		}
	}

	n.Outputs()[0].Publish(out)
	return nil
}

// OutputChannels mirrors the input's effective channel count, consistent
// with every other pass-through node in this package.
func (g *InputCaptureNode) OutputChannels(ctx *graph.Context, n *graph.Node, outputIndex, depth int) (int, bool) {
	if in := n.Inputs()[0].Buf(); in != nil {
		return in.Channels(), true
	}
	return n.Inputs()[0].EffectiveChannels(ctx, depth+1), true
}

func (g *InputCaptureNode) OnDispose() {
	if g.outBuf != nil {
		g.ctx.Pool().Return(g.outBuf)
		g.outBuf = nil
	}
}

// peakAmplitude scans every channel of blk for the largest absolute
// sample value using a branchless running max over the magnitude bit
// patterns, then reconstructs the float32 peak from the winning bits.
func peakAmplitude(blk *graph.Block) float32 {
	var maxBits int32
	for c := 0; c < blk.Channels(); c++ {
		ch := blk.Chan(c)
		for i := 0; i < graph.FramesPerBlock; i++ {
			absBits := int32(math.Float32bits(ch[i]) &^ 0x80000000)
			diff := absBits - maxBits
			maxBits += (diff & (diff >> 31)) ^ diff
		}
	}
	return math.Float32frombits(uint32(maxBits))
}
