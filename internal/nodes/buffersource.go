// SPDX-License-Identifier: MIT
package nodes

import "github.com/the-byte-bender/graphaudio/internal/graph"

// BufferSourceNode plays a PlayableBuffer through a per-channel
// cubic-Hermite resampler, honoring the buffer's own sample rate against
// the context's. It can only ever be started once, per the playable
// buffer's one-shot-content nature — restarting a finished playback means
// building a new node with the same buffer.
type BufferSourceNode struct {
	ctx  *graph.Context
	node *graph.Node
	buf  *graph.PlayableBuffer
	loop bool

	rate *graph.Param

	schedule   *graph.Schedule
	resamplers []*graph.Resampler
	cursor     int
	finished   bool
	outBuf     *graph.Block
}

// NewBufferSourceNode builds a zero-input, single-output node that plays
// buf at buf.Channels() channels. loop controls whether playback wraps
// back to the start of buf when it runs out, or finishes: Ended reports
// true and the node outputs silence. Running out of buffer does not fire
// the ended callbacks or dispose the node; only a crossed Stop time does.
func NewBufferSourceNode(ctx *graph.Context, buf *graph.PlayableBuffer, loop bool) *BufferSourceNode {
	ch := buf.Channels()
	if ch < 1 {
		ch = 1
	}
	n := graph.NewNode(ctx, "buffer-source", 0, 1)
	b := &BufferSourceNode{
		ctx:        ctx,
		node:       n,
		buf:        buf,
		loop:       loop,
		rate:       graph.NewParam("playbackRate", 1.0, 0.0, 32.0, graph.RateControl),
		schedule:   graph.NewSchedule(true),
		resamplers: make([]*graph.Resampler, ch),
	}
	for i := range b.resamplers {
		b.resamplers[i] = graph.NewResampler()
	}
	n.AddParam(b.rate)
	n.Outputs()[0].SetChannels(ch)
	n.SetKind(b)
	return b
}

func (b *BufferSourceNode) Node() *graph.Node         { return b.node }
func (b *BufferSourceNode) PlaybackRate() *graph.Param { return b.rate }

// Start schedules playback to begin at absolute context time when. It
// returns an error if the node has already been started once.
func (b *BufferSourceNode) Start(when float64) error {
	return b.schedule.Start(b.ctx.CurrentTime(), when)
}

func (b *BufferSourceNode) Stop(when float64) error {
	return b.schedule.Stop(when)
}

// Ended reports whether playback has consumed the whole buffer (and, for
// a non-looping node, will never produce signal again).
func (b *BufferSourceNode) Ended() bool { return b.finished }

func (b *BufferSourceNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	ch := len(b.resamplers)

	if b.outBuf != nil {
		ctx.Pool().Return(b.outBuf)
	}
	out := ctx.Pool().Rent(ch)
	b.outBuf = out

	sr := ctx.SampleRate()
	t1 := blockTime + float64(graph.FramesPerBlock)/sr
	plays, startFrame, endFrame := b.schedule.PlayWindow(blockTime, t1, sr)

	finish := func() error {
		n.Outputs()[0].Publish(out)
		if b.schedule.CheckEnded(blockTime, t1) {
			n.FireEnded()
		}
		return nil
	}

	if !b.buf.Ready() || !plays || b.finished || endFrame <= startFrame {
		return finish()
	}

	rateRatio := b.buf.SourceSampleRate() / sr * b.rate.Value()
	if rateRatio <= 0 {
		return finish()
	}

	out.MarkNonSilent()
	consumed := 0
	for c := 0; c < ch && c < b.buf.Channels(); c++ {
		src := b.buf.Channel(c)
		avail := src[b.cursor:]
		consumed, _ = b.resamplers[c].Process(avail, out.Chan(c)[startFrame:endFrame], rateRatio)
	}

	b.cursor += consumed
	if b.cursor >= b.buf.Frames() {
		if b.loop {
			b.wrapLoop()
		} else {
			b.finished = true
		}
	}

	return finish()
}

func (b *BufferSourceNode) wrapLoop() {
	frames := b.buf.Frames()
	if frames < 2 {
		b.cursor = 0
		return
	}
	for c, r := range b.resamplers {
		if c >= b.buf.Channels() {
			continue
		}
		src := b.buf.Channel(c)
		r.SetupLoop(src[frames-2], src[frames-1], src[0], src[1])
	}
	b.cursor = 0
}

func (b *BufferSourceNode) OnDispose() {
	if b.outBuf != nil {
		b.ctx.Pool().Return(b.outBuf)
		b.outBuf = nil
	}
}
