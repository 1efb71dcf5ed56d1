// SPDX-License-Identifier: MIT
package nodes

import "github.com/the-byte-bender/graphaudio/internal/graph"

// GainNode scales its input by a gain AudioParam, sample-accurately at
// audio rate. It is the canonical pass-through node: its output channel
// count mirrors whatever its input is currently carrying, via the
// ChannelReporter hook, rather than declaring a fixed count of its own.
type GainNode struct {
	ctx  *graph.Context
	node *graph.Node
	gain *graph.Param

	outBuf *graph.Block
}

// NewGainNode builds a single-input, single-output gain stage with a
// default gain of 1 (unity) and a practical upper bound well above any
// sane mix level.
func NewGainNode(ctx *graph.Context) *GainNode {
	n := graph.NewNode(ctx, "gain", 1, 1)
	g := &GainNode{
		ctx:  ctx,
		node: n,
		gain: graph.NewParam("gain", 1.0, 0.0, 1000.0, graph.RateAudio),
	}
	n.AddParam(g.gain)
	n.SetKind(g)
	return g
}

func (g *GainNode) Node() *graph.Node  { return g.node }
func (g *GainNode) Gain() *graph.Param { return g.gain }

func (g *GainNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	in := n.Inputs()[0].Buf()
	if in == nil {
		return nil
	}

	if g.outBuf != nil {
		ctx.Pool().Return(g.outBuf)
	}
	out := ctx.Pool().Rent(in.Channels())
	g.outBuf = out

	gainVals := g.gain.Values()
	if !in.Silent {
		out.MarkNonSilent()
		for c := 0; c < in.Channels(); c++ {
			src := in.Chan(c)
			dst := out.Chan(c)
			for i := 0; i < graph.FramesPerBlock; i++ {
				dst[i] = src[i] * gainVals[i]
			}
		}
	}

	n.Outputs()[0].Publish(out)
	return nil
}

func (g *GainNode) OnDispose() {
	if g.outBuf != nil {
		g.ctx.Pool().Return(g.outBuf)
		g.outBuf = nil
	}
}

// OutputChannels mirrors the input's effective channel count, so a gain
// node never forces a channel-count conversion of its own.
func (g *GainNode) OutputChannels(ctx *graph.Context, n *graph.Node, outputIndex, depth int) (int, bool) {
	if in := n.Inputs()[0].Buf(); in != nil {
		return in.Channels(), true
	}
	return n.Inputs()[0].EffectiveChannels(ctx, depth+1), true
}
