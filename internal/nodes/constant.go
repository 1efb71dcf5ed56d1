// SPDX-License-Identifier: MIT
package nodes

import "github.com/the-byte-bender/graphaudio/internal/graph"

// ConstantSourceNode emits its Offset param's value on a single channel.
// It exists to drive modulation: connect its output to another param via
// Node.ConnectToParam and automate Offset to sweep that param over time
// using the same ramp/target vocabulary as any other AudioParam.
type ConstantSourceNode struct {
	ctx    *graph.Context
	node   *graph.Node
	offset *graph.Param

	schedule *graph.Schedule
	outBuf   *graph.Block
}

// NewConstantSourceNode builds a zero-input, single-output constant
// source seeded at the given value.
func NewConstantSourceNode(ctx *graph.Context, value float64) *ConstantSourceNode {
	n := graph.NewNode(ctx, "constant-source", 0, 1)
	c := &ConstantSourceNode{
		ctx:      ctx,
		node:     n,
		offset:   graph.NewParam("offset", value, -1e9, 1e9, graph.RateAudio),
		schedule: graph.NewSchedule(false),
	}
	n.AddParam(c.offset)
	n.Outputs()[0].SetChannels(1)
	n.SetKind(c)
	return c
}

func (c *ConstantSourceNode) Node() *graph.Node    { return c.node }
func (c *ConstantSourceNode) Offset() *graph.Param { return c.offset }

func (c *ConstantSourceNode) Start(when float64) error {
	return c.schedule.Start(c.ctx.CurrentTime(), when)
}

func (c *ConstantSourceNode) Stop(when float64) error {
	return c.schedule.Stop(when)
}

func (c *ConstantSourceNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	sr := ctx.SampleRate()
	t1 := blockTime + float64(graph.FramesPerBlock)/sr

	if c.outBuf != nil {
		ctx.Pool().Return(c.outBuf)
	}
	out := ctx.Pool().Rent(1)
	c.outBuf = out

	plays, startFrame, endFrame := c.schedule.PlayWindow(blockTime, t1, sr)
	if plays && endFrame > startFrame {
		out.MarkNonSilent()
		vals := c.offset.Values()
		ch := out.Chan(0)
		for i := startFrame; i < endFrame; i++ {
			ch[i] = vals[i]
		}
	}

	n.Outputs()[0].Publish(out)
	if c.schedule.CheckEnded(blockTime, t1) {
		n.FireEnded()
	}
	return nil
}

func (c *ConstantSourceNode) OnDispose() {
	if c.outBuf != nil {
		c.ctx.Pool().Return(c.outBuf)
		c.outBuf = nil
	}
}
