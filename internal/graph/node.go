// SPDX-License-Identifier: MIT
package graph

import "sync/atomic"

var nodeIDCounter atomic.Uint64

func nextNodeID() uint64 {
	return nodeIDCounter.Add(1)
}

// NodeKind is the capability set a concrete node type implements: compute
// a block of output given already-pulled inputs and computed parameters,
// and release kind-specific resources on disposal. This is the "dynamic
// dispatch of nodes" design: a node type is an independent leaf satisfying
// a small interface, not a deep inheritance hierarchy.
type NodeKind interface {
	Process(ctx *Context, n *Node, blockNumber int64, blockTime float64) error
	OnDispose()
}

// ChannelReporter is an optional capability a NodeKind may implement when
// an output's channel count should mirror its inputs (a pass-through node
// like a gain or filter) rather than stay at a fixed nominal value.
type ChannelReporter interface {
	OutputChannels(ctx *Context, n *Node, outputIndex, depth int) (int, bool)
}

func reportOutputChannels(kind NodeKind, ctx *Context, n *Node, idx, depth int) (int, bool) {
	if cr, ok := kind.(ChannelReporter); ok {
		return cr.OutputChannels(ctx, n, idx, depth)
	}
	return 0, false
}

// Node is the base object every node type embeds through composition: a
// fixed list of input ports, a fixed list of output ports, a list of
// parameters, memoized per-block scheduling state, and a back-reference
// to the owning context. Input/output counts are fixed at construction.
type Node struct {
	id   uint64
	name string
	ctx  *Context
	kind NodeKind

	inputs  []*InputPort
	outputs []*OutputPort
	params  []*Param

	lastProcessedBlock int64
	inProgress          bool
	disposed            bool

	onEnded []func()
}

// NewNode constructs a node with numInputs input ports and numOutputs
// output ports (each defaulting to 2 nominal channels), owned by ctx.
// kind may be nil at construction time and set once via SetKind — useful
// for node types whose constructor needs a *Node to build parameters
// against before the concrete kind value exists.
func NewNode(ctx *Context, name string, numInputs, numOutputs int) *Node {
	n := &Node{
		id:                  nextNodeID(),
		name:                name,
		ctx:                 ctx,
		lastProcessedBlock:  -1,
	}
	for i := 0; i < numInputs; i++ {
		n.inputs = append(n.inputs, newInputPort(n, i))
	}
	for i := 0; i < numOutputs; i++ {
		n.outputs = append(n.outputs, newOutputPort(n, i, 2))
	}
	if ctx != nil {
		ctx.registerNode(n)
	}
	return n
}

// SetKind attaches the concrete behavior. Node types call this at the end
// of their constructor once the *Node exists.
func (n *Node) SetKind(kind NodeKind) { n.kind = kind }

func (n *Node) ID() uint64         { return n.id }
func (n *Node) Name() string       { return n.name }
func (n *Node) Context() *Context  { return n.ctx }
func (n *Node) Inputs() []*InputPort   { return n.inputs }
func (n *Node) Outputs() []*OutputPort { return n.outputs }
func (n *Node) Params() []*Param       { return n.params }
func (n *Node) Disposed() bool         { return n.disposed }

// AddParam registers a parameter owned by this node. Node types call this
// from their constructor for each AudioParam they expose.
func (n *Node) AddParam(p *Param) {
	n.params = append(n.params, p)
}

// processInternal memoizes per block: a node's Process runs at most once
// per block regardless of fan-out. Re-entrancy while already in progress
// indicates a connection cycle and is reported naming this node.
func (n *Node) processInternal(ctx *Context, blockNumber int64, blockTime float64) error {
	if n.disposed {
		return newDisposedErr("node " + n.name)
	}
	if n.inProgress {
		return newCycleErr(n.name, n.id)
	}
	if n.lastProcessedBlock == blockNumber {
		return nil
	}

	n.inProgress = true
	n.lastProcessedBlock = blockNumber
	defer func() { n.inProgress = false }()

	for _, p := range n.params {
		if err := p.compute(ctx, blockNumber, blockTime); err != nil {
			return err
		}
	}
	for _, in := range n.inputs {
		if _, err := in.pull(ctx, blockNumber, blockTime); err != nil {
			return err
		}
	}
	if n.kind == nil {
		return nil
	}
	return n.kind.Process(ctx, n, blockNumber, blockTime)
}

// Connect wires output outIdx of n to input inIdx of dst. Self-connection
// is rejected synchronously as an argument error; the mutation itself is
// posted through the context's execute-or-post discipline.
func (n *Node) Connect(outIdx int, dst *Node, inIdx int) error {
	if dst == n {
		return newArgErr("node %q cannot connect to itself", n.name)
	}
	if outIdx < 0 || outIdx >= len(n.outputs) {
		return newArgErr("output index %d out of range for node %q", outIdx, n.name)
	}
	if inIdx < 0 || inIdx >= len(dst.inputs) {
		return newArgErr("input index %d out of range for node %q", inIdx, dst.name)
	}
	srcID := n.id
	n.ctx.ExecuteOrPost(func() {
		dst.inputs[inIdx].connect(srcID, outIdx)
		n.outputs[outIdx].addConsumer(dst.id, inIdx)
	})
	return nil
}

// Disconnect removes a previously-made Connect edge.
func (n *Node) Disconnect(outIdx int, dst *Node, inIdx int) error {
	if outIdx < 0 || outIdx >= len(n.outputs) {
		return newArgErr("output index %d out of range for node %q", outIdx, n.name)
	}
	if inIdx < 0 || inIdx >= len(dst.inputs) {
		return newArgErr("input index %d out of range for node %q", inIdx, dst.name)
	}
	srcID := n.id
	n.ctx.ExecuteOrPost(func() {
		dst.inputs[inIdx].disconnect(srcID, outIdx)
		n.outputs[outIdx].removeConsumer(dst.id, inIdx)
	})
	return nil
}

// ConnectToParam wires output outIdx of n into param's hidden summing
// modulation input.
func (n *Node) ConnectToParam(outIdx int, p *Param) error {
	if outIdx < 0 || outIdx >= len(n.outputs) {
		return newArgErr("output index %d out of range for node %q", outIdx, n.name)
	}
	srcID := n.id
	n.ctx.ExecuteOrPost(func() {
		p.modInput.connect(srcID, outIdx)
	})
	return nil
}

// DisconnectFromParam removes a ConnectToParam edge.
func (n *Node) DisconnectFromParam(outIdx int, p *Param) error {
	if outIdx < 0 || outIdx >= len(n.outputs) {
		return newArgErr("output index %d out of range for node %q", outIdx, n.name)
	}
	srcID := n.id
	n.ctx.ExecuteOrPost(func() {
		p.modInput.disconnect(srcID, outIdx)
	})
	return nil
}

// OnEnded registers fn to be called exactly once, synchronously on the
// render thread, the first time this node's embedded Schedule crosses its
// stop time. A scheduled NodeKind (oscillator, constant source, buffer
// source) calls FireEnded from its own Process once Schedule.CheckEnded
// reports the crossing; this node then disposes itself. Must be called
// before the node is pulled for the block that will end it — there is no
// queued-delivery path for late subscribers.
func (n *Node) OnEnded(fn func()) {
	n.onEnded = append(n.onEnded, fn)
}

// FireEnded runs every callback registered via OnEnded, in registration
// order, then disposes the node. Node types call this from Process, and
// only after Schedule.CheckEnded has returned true for the current block —
// CheckEnded itself already guarantees this fires at most once per node.
func (n *Node) FireEnded() {
	for _, fn := range n.onEnded {
		fn()
	}
	n.Dispose()
}

// Dispose is idempotent: the first call posts a teardown of every output,
// every input, and every parameter, then invokes the kind's OnDispose.
// Later calls are no-ops once the posted teardown has run.
func (n *Node) Dispose() {
	ctx := n.ctx
	ctx.ExecuteOrPost(func() {
		if n.disposed {
			return
		}
		n.disposed = true
		for _, out := range n.outputs {
			out.teardown()
		}
		for _, in := range n.inputs {
			in.teardown(ctx)
		}
		for _, p := range n.params {
			p.teardown(ctx)
		}
		if n.kind != nil {
			n.kind.OnDispose()
		}
	})
}
