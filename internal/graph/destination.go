// SPDX-License-Identifier: MIT
package graph

// destinationKind is the core-provided sink every context exposes via
// Destination(): a single input, single output node whose Process simply
// republishes whatever its input mixed this block. It carries no DSP of
// its own — actual rendering behavior lives entirely in the input-mixing
// pull that already ran before Process is invoked.
type destinationKind struct{}

func (destinationKind) Process(ctx *Context, n *Node, blockNumber int64, blockTime float64) error {
	buf := n.inputs[0].buf
	n.outputs[0].Publish(buf)
	return nil
}

func (destinationKind) OnDispose() {}

func (destinationKind) OutputChannels(ctx *Context, n *Node, outputIndex, depth int) (int, bool) {
	if n.inputs[0].buf != nil {
		return n.inputs[0].buf.Channels(), true
	}
	return n.inputs[0].effectiveChannels(ctx, depth+1), true
}

func newDestinationNode(ctx *Context) *Node {
	n := NewNode(ctx, "destination", 1, 1)
	n.SetKind(destinationKind{})
	return n
}
