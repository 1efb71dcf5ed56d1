// SPDX-License-Identifier: MIT
package graph

// outputRef resolves a connection target without holding a strong
// reference to the node: connections are (nodeID, portIndex) pairs looked
// up against the context's node arena on every pull. This keeps the
// connection graph — which may be cyclic — decoupled from ownership, which
// never is, and makes disposal deterministic (see design notes).
type outputRef struct {
	nodeID      uint64
	outputIndex int
}

type inputRef struct {
	nodeID     uint64
	inputIndex int
}

// OutputPort holds an advisory reference to the block buffer published by
// its owner's last Process call, plus the list of downstream inputs
// currently connected (kept for disconnect-all-on-dispose bookkeeping; the
// actual mix walk is driven from the consuming InputPort's source list).
type OutputPort struct {
	owner    *Node
	index    int
	buf      *Block
	channels int // nominal channel count this output declares, before any pass-through override
	consumers []inputRef
}

func newOutputPort(owner *Node, index, channels int) *OutputPort {
	return &OutputPort{owner: owner, index: index, channels: channels}
}

// SetChannels overrides this output's declared nominal channel count.
// Source-like node types with a fixed channel count that differs from the
// default of 2 call this once from their constructor; pass-through nodes
// whose channel count tracks their input instead implement ChannelReporter
// and never need this.
func (o *OutputPort) SetChannels(n int) {
	o.channels = n
}

// Buf returns the block published by the owner's most recent Process
// call, or nil if nothing has been published yet (or since teardown).
func (o *OutputPort) Buf() *Block { return o.buf }

// Publish records buf as this output's result for the block currently
// being processed. A NodeKind calls this once from Process for each of
// its outputs before returning.
func (o *OutputPort) Publish(buf *Block) {
	o.buf = buf
}

// ChannelCount returns this output's effective channel count for the
// current topology. Source-like nodes declare a fixed channel count;
// pass-through nodes (for example a single-input, single-output gain)
// implement ChannelReporter to mirror their input's effective count.
// depth guards against walking a connection cycle before the owning
// node's own cycle detection has had a chance to fire.
func (o *OutputPort) ChannelCount(ctx *Context, depth int) int {
	if depth > 64 {
		return o.channels
	}
	if o.owner != nil && o.owner.kind != nil {
		if c, ok := reportOutputChannels(o.owner.kind, ctx, o.owner, o.index, depth); ok {
			return c
		}
	}
	return o.channels
}

func (o *OutputPort) addConsumer(nodeID uint64, inputIndex int) {
	o.consumers = append(o.consumers, inputRef{nodeID: nodeID, inputIndex: inputIndex})
}

func (o *OutputPort) removeConsumer(nodeID uint64, inputIndex int) {
	for i, c := range o.consumers {
		if c.nodeID == nodeID && c.inputIndex == inputIndex {
			o.consumers = append(o.consumers[:i], o.consumers[i+1:]...)
			return
		}
	}
}

// teardown clears consumer bookkeeping during node disposal. Disconnection
// of the downstream input ports themselves is handled by the node that
// owns those ports when it, too, is disposed or explicitly disconnected.
func (o *OutputPort) teardown() {
	o.consumers = nil
	o.buf = nil
}
