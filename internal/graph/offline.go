// SPDX-License-Identifier: MIT
package graph

// OfflineDriver renders a context one FramesPerBlock block at a time and
// hands out exactly as many frames as the caller asks for, regardless of
// block alignment. Frames produced beyond what a Render call consumed are
// kept in a small carry-over area and served first on the next call, so
// repeated small Render calls never re-run a block or drop samples.
type OfflineDriver struct {
	ctx *Context

	carry      [][]float32 // per channel, leftover frames from the last block
	carryLen   int
	carryStart int
}

// NewOfflineDriver returns a driver over ctx. ctx is rendered exclusively
// through this driver's Render calls; it must not also be driven by a
// RealtimeDriver.
func NewOfflineDriver(ctx *Context) *OfflineDriver {
	return &OfflineDriver{ctx: ctx}
}

// Render fills output[c][startIndex:startIndex+frameCount] for every
// channel c with rendered audio. output must have at least one channel,
// every channel slice must be long enough to hold startIndex+frameCount
// samples, and frameCount must be positive. Channels beyond the context's
// graph output are filled with silence; graph channels beyond
// len(output) are discarded.
func (d *OfflineDriver) Render(output [][]float32, frameCount, startIndex int) error {
	if d.ctx.Disposed() {
		return newDisposedErr("context")
	}
	if len(output) == 0 {
		return newArgErr("offline render requires at least one channel")
	}
	if frameCount <= 0 {
		return newArgErr("frameCount must be positive, got %d", frameCount)
	}
	if startIndex < 0 {
		return newArgErr("startIndex must be non-negative, got %d", startIndex)
	}
	for c, ch := range output {
		if ch == nil {
			return newArgErr("output channel %d is nil", c)
		}
		if len(ch) < startIndex+frameCount {
			return newArgErr("output channel %d too small: have %d, need %d", c, len(ch), startIndex+frameCount)
		}
	}

	outChannels := len(output)
	written := 0

	for written < frameCount {
		if d.carryLen == 0 {
			blk, err := d.ctx.ProcessBlock()
			if err != nil {
				return err
			}
			d.fillCarry(blk, outChannels)
		}

		n := d.carryLen
		if remaining := frameCount - written; n > remaining {
			n = remaining
		}

		for c := 0; c < outChannels; c++ {
			dst := output[c][startIndex+written : startIndex+written+n]
			src := d.carry[c][d.carryStart : d.carryStart+n]
			copy(dst, src)
		}

		written += n
		d.carryStart += n
		d.carryLen -= n
	}

	return nil
}

// fillCarry replaces the carry area with a freshly rendered block,
// resampled to outChannels via silence-padding or truncation and grown
// geometrically (never shrunk) so steady-state rendering allocates nothing
// after the first few blocks.
func (d *OfflineDriver) fillCarry(blk *Block, outChannels int) {
	if cap(d.carry) < outChannels {
		newCap := 2 * cap(d.carry)
		if newCap < outChannels {
			newCap = outChannels
		}
		grown := make([][]float32, outChannels, newCap)
		copy(grown, d.carry)
		d.carry = grown
	} else {
		d.carry = d.carry[:outChannels]
	}

	graphCh := 0
	if blk != nil {
		graphCh = blk.Channels()
	}

	for c := 0; c < outChannels; c++ {
		if cap(d.carry[c]) < FramesPerBlock {
			d.carry[c] = make([]float32, FramesPerBlock)
		} else {
			d.carry[c] = d.carry[c][:FramesPerBlock]
		}
		if c < graphCh {
			copy(d.carry[c], blk.Chan(c)[:])
		} else {
			for i := range d.carry[c] {
				d.carry[c][i] = 0
			}
		}
	}

	d.carryStart = 0
	d.carryLen = FramesPerBlock
}
