// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"sync/atomic"
)

// DefaultSampleRate is used when a caller does not specify one.
const DefaultSampleRate = 48000

// Context is the core's control/render coordination point: current time,
// the block counter, the command queue, the buffer pool, the destination
// node, and the captured render-thread identity.
type Context struct {
	sampleRate float64
	pool       *BufferPool

	destination *Node
	nodes       map[uint64]*Node // render-thread-only; see concurrency model

	currentBlock int64
	currentTime  float64

	cmdQueue commandQueue

	renderGoroutine atomic.Uint64
	inRender        atomic.Bool
	disposed        atomic.Bool

	errorHook func(error)
}

// NewContext constructs a context at the given sample rate with a fresh
// buffer pool and destination node.
func NewContext(sampleRate float64) *Context {
	ctx := &Context{
		sampleRate: sampleRate,
		pool:       NewBufferPool(),
		nodes:      make(map[uint64]*Node),
	}
	ctx.destination = newDestinationNode(ctx)
	ctx.nodes[ctx.destination.id] = ctx.destination
	return ctx
}

func (ctx *Context) SampleRate() float64   { return ctx.sampleRate }
func (ctx *Context) Pool() *BufferPool     { return ctx.pool }
func (ctx *Context) Destination() *Node    { return ctx.destination }
func (ctx *Context) CurrentBlock() int64   { return ctx.currentBlock }
func (ctx *Context) CurrentTime() float64  { return ctx.currentTime }
func (ctx *Context) Disposed() bool        { return ctx.disposed.Load() }

// SetErrorHook registers a callback invoked, on the render thread, with
// every error swallowed while draining the command queue. It is the only
// sanctioned way to observe those failures; the drain loop itself never
// propagates them.
func (ctx *Context) SetErrorHook(hook func(error)) {
	ctx.errorHook = hook
}

func (ctx *Context) lookupNode(id uint64) *Node {
	return ctx.nodes[id]
}

func (ctx *Context) registerNode(n *Node) {
	ctx.ExecuteOrPost(func() {
		ctx.nodes[n.id] = n
	})
}

// Post unconditionally appends fn to the command queue, to be drained at
// the start of the next block.
func (ctx *Context) Post(fn func()) {
	ctx.cmdQueue.push(fn)
}

// ExecuteOrPost runs fn synchronously iff the caller is on the render
// thread and that thread is currently between blocks (not itself inside
// ProcessBlock); otherwise it posts fn for the next drain. The render
// thread is latched the first time ProcessBlock runs; a later call from a
// different goroutine is never treated as a re-pin.
func (ctx *Context) ExecuteOrPost(fn func()) {
	pinned := ctx.renderGoroutine.Load()
	if pinned != 0 && pinned == currentGoroutineID() && !ctx.inRender.Load() {
		fn()
		return
	}
	ctx.Post(fn)
}

// drainCommands runs every queued command, swallowing panics/errors from
// each individually so one bad command cannot abort a block.
func (ctx *Context) drainCommands() {
	for _, fn := range ctx.cmdQueue.drainAll() {
		ctx.runCommand(fn)
	}
}

func (ctx *Context) runCommand(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if ctx.errorHook != nil {
				ctx.errorHook(fmt.Errorf("command queue: recovered panic: %v", r))
			}
		}
	}()
	fn()
}

// ProcessBlock is the single-block entry point: drain commands, pin the
// render thread if unpinned, advance the block counter and time, pull the
// destination, and return its published output buffer.
func (ctx *Context) ProcessBlock() (*Block, error) {
	if ctx.disposed.Load() {
		return nil, newDisposedErr("context")
	}

	ctx.drainCommands()

	if ctx.renderGoroutine.Load() == 0 {
		ctx.renderGoroutine.Store(currentGoroutineID())
	}

	ctx.currentBlock++
	blockTime := ctx.currentTime

	ctx.inRender.Store(true)
	err := ctx.destination.processInternal(ctx, ctx.currentBlock, blockTime)
	ctx.inRender.Store(false)

	ctx.currentTime += float64(FramesPerBlock) / ctx.sampleRate

	if err != nil {
		return nil, err
	}
	return ctx.destination.outputs[0].Buf(), nil
}

// ProcessBlockInterleaved runs ProcessBlock and deinterleaves the result
// into out, which must hold exactly FramesPerBlock*channels samples.
// Graph channels beyond channels are dropped; requested channels beyond
// the graph's output are zeroed.
func (ctx *Context) ProcessBlockInterleaved(out []float32, channels int) error {
	blk, err := ctx.ProcessBlock()
	if err != nil {
		return err
	}

	graphCh := 0
	if blk != nil {
		graphCh = blk.Channels()
	}

	for i := 0; i < FramesPerBlock; i++ {
		base := i * channels
		for c := 0; c < channels; c++ {
			var v float32
			if c < graphCh {
				v = blk.Chan(c)[i]
			}
			out[base+c] = v
		}
	}
	return nil
}

// Dispose marks the context disposed; every subsequent ProcessBlock (and
// so every ProcessBlockInterleaved and OfflineDriver.Render) returns a
// disposed error on entry. Post, ExecuteOrPost and the node connection
// methods do not check the flag.
func (ctx *Context) Dispose() {
	ctx.disposed.Store(true)
}
