// SPDX-License-Identifier: MIT
package graph

import "math"

// ChannelCountMode selects how an input port derives its effective
// channel count from its nominal count and its connected sources.
type ChannelCountMode int

const (
	ChannelCountMax ChannelCountMode = iota
	ChannelCountClampedMax
	ChannelCountExplicit
)

// ChannelInterpretation selects the channel-conversion law used when
// mixing a source of one channel count into a destination of another.
type ChannelInterpretation int

const (
	InterpretationSpeakers ChannelInterpretation = iota
	InterpretationDiscrete
)

// InputPort owns the destination-side block buffer leased from the pool,
// the list of upstream outputs currently connected, and the policy that
// governs how many channels the leased buffer has.
type InputPort struct {
	owner  *Node
	index  int
	buf    *Block
	sources []outputRef

	nominalChannels int
	mode            ChannelCountMode
	interp          ChannelInterpretation
	dirty           bool
}

func newInputPort(owner *Node, index int) *InputPort {
	return &InputPort{
		owner:           owner,
		index:           index,
		nominalChannels: 2,
		mode:            ChannelCountMax,
		interp:          InterpretationSpeakers,
	}
}

// Buf returns the block mixed by this port's most recent pull, or nil if
// the port has never been pulled (or has been torn down).
func (p *InputPort) Buf() *Block { return p.buf }

// SetChannelCountMode and SetChannelInterpretation are control-plane
// configuration calls; like all node mutation they should be issued
// through Context.ExecuteOrPost by the node's own setter methods, not
// called directly from another thread.
func (p *InputPort) SetChannelCountMode(m ChannelCountMode) {
	if p.mode != m {
		p.mode = m
		p.dirty = true
	}
}

func (p *InputPort) SetChannelInterpretation(ci ChannelInterpretation) {
	p.interp = ci
}

func (p *InputPort) SetNominalChannels(n int) {
	if n < MinChannels {
		n = MinChannels
	}
	if n > MaxChannels {
		n = MaxChannels
	}
	if p.nominalChannels != n {
		p.nominalChannels = n
		p.dirty = true
	}
}

func (p *InputPort) connect(nodeID uint64, outputIndex int) {
	for _, s := range p.sources {
		if s.nodeID == nodeID && s.outputIndex == outputIndex {
			return
		}
	}
	p.sources = append(p.sources, outputRef{nodeID: nodeID, outputIndex: outputIndex})
	p.dirty = true
}

func (p *InputPort) disconnect(nodeID uint64, outputIndex int) {
	for i, s := range p.sources {
		if s.nodeID == nodeID && s.outputIndex == outputIndex {
			p.sources = append(p.sources[:i], p.sources[i+1:]...)
			p.dirty = true
			return
		}
	}
}

func (p *InputPort) disconnectAll() {
	p.sources = nil
	p.dirty = true
}

// EffectiveChannels computes this port's channel count under its policy,
// for node kinds (such as a pass-through gain) that need to mirror it
// without having a pulled buffer yet.
func (p *InputPort) EffectiveChannels(ctx *Context, depth int) int {
	return p.effectiveChannels(ctx, depth)
}

// effectiveChannels computes this port's channel count under its policy.
func (p *InputPort) effectiveChannels(ctx *Context, depth int) int {
	switch p.mode {
	case ChannelCountExplicit:
		return p.nominalChannels
	default:
		eff := p.nominalChannels
		for _, s := range p.sources {
			node := ctx.lookupNode(s.nodeID)
			if node == nil || s.outputIndex >= len(node.outputs) {
				continue
			}
			c := node.outputs[s.outputIndex].ChannelCount(ctx, depth+1)
			if c > eff {
				eff = c
			}
		}
		if p.mode == ChannelCountClampedMax && eff > p.nominalChannels {
			return p.nominalChannels
		}
		return eff
	}
}

// pull runs once per port per block, mixing every connected source's
// published block into a freshly-leased (or reused) destination buffer.
func (p *InputPort) pull(ctx *Context, blockNumber int64, blockTime float64) (*Block, error) {
	effective := p.effectiveChannels(ctx, 0)

	if len(p.sources) == 0 {
		p.ensureBuf(ctx, effective)
		p.buf.Clear()
		p.dirty = false
		return p.buf, nil
	}

	p.ensureBuf(ctx, effective)
	p.buf.Clear()
	p.dirty = false

	for _, s := range p.sources {
		srcNode := ctx.lookupNode(s.nodeID)
		if srcNode == nil || srcNode.disposed {
			continue // a broken connection is treated as absent, not an error
		}
		if err := srcNode.processInternal(ctx, blockNumber, blockTime); err != nil {
			return nil, err
		}
		if s.outputIndex >= len(srcNode.outputs) {
			continue
		}
		out := srcNode.outputs[s.outputIndex]
		src := out.Buf()
		if src == nil {
			continue
		}
		mixInto(p.buf, src, p.interp)
	}

	return p.buf, nil
}

func (p *InputPort) ensureBuf(ctx *Context, effective int) {
	if p.buf != nil && p.buf.Channels() == effective && !p.dirty {
		return
	}
	if p.buf != nil {
		ctx.pool.Return(p.buf)
	}
	p.buf = ctx.pool.Rent(effective)
}

func (p *InputPort) teardown(ctx *Context) {
	if p.buf != nil {
		ctx.pool.Return(p.buf)
		p.buf = nil
	}
	p.sources = nil
}

// mixInto adds src into dst following the channel-conversion law for the
// given interpretation. If src is non-silent, dst is marked non-silent.
func mixInto(dst, src *Block, interp ChannelInterpretation) {
	dstCh := dst.Channels()
	srcCh := src.Channels()

	if !src.Silent {
		dst.MarkNonSilent()
	}

	if interp == InterpretationDiscrete {
		n := srcCh
		if dstCh < n {
			n = dstCh
		}
		for c := 0; c < n; c++ {
			sc := src.Chan(c)
			dc := dst.Chan(c)
			for i := 0; i < FramesPerBlock; i++ {
				dc[i] += sc[i]
			}
		}
		return
	}

	switch {
	case srcCh == dstCh:
		for c := 0; c < srcCh; c++ {
			sc := src.Chan(c)
			dc := dst.Chan(c)
			for i := 0; i < FramesPerBlock; i++ {
				dc[i] += sc[i]
			}
		}
	case srcCh == 1 && dstCh > 1:
		sc := src.Chan(0)
		for c := 0; c < dstCh; c++ {
			dc := dst.Chan(c)
			for i := 0; i < FramesPerBlock; i++ {
				dc[i] += sc[i]
			}
		}
	case srcCh > 1 && dstCh == 1:
		scale := float32(1.0 / math.Sqrt(float64(srcCh)))
		dc := dst.Chan(0)
		for i := 0; i < FramesPerBlock; i++ {
			var sum float32
			for c := 0; c < srcCh; c++ {
				sum += src.Chan(c)[i]
			}
			dc[i] += sum * scale
		}
	default:
		n := srcCh
		if dstCh < n {
			n = dstCh
		}
		for c := 0; c < n; c++ {
			sc := src.Chan(c)
			dc := dst.Chan(c)
			for i := 0; i < FramesPerBlock; i++ {
				dc[i] += sc[i]
			}
		}
	}
}
