// SPDX-License-Identifier: MIT
package nodes

import (
	"math"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// WaveType selects an OscillatorNode's periodic waveform.
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

// OscillatorNode is a scheduled, single-channel tone generator. Its
// frequency is an audio-rate AudioParam, so frequency automation (a
// glide, a vibrato modulator) is sample-accurate like every other param
// in the graph.
type OscillatorNode struct {
	ctx  *graph.Context
	node *graph.Node
	freq *graph.Param
	wave WaveType

	schedule *graph.Schedule
	phase    float64
	outBuf   *graph.Block
}

// NewOscillatorNode builds a zero-input, single-output tone generator at
// 440Hz by default. It must be started with Start before it produces any
// signal.
func NewOscillatorNode(ctx *graph.Context, wave WaveType) *OscillatorNode {
	n := graph.NewNode(ctx, "oscillator", 0, 1)
	o := &OscillatorNode{
		ctx:      ctx,
		node:     n,
		freq:     graph.NewParam("frequency", 440.0, 0.0, 20000.0, graph.RateAudio),
		wave:     wave,
		schedule: graph.NewSchedule(false),
	}
	n.AddParam(o.freq)
	n.Outputs()[0].SetChannels(1)
	n.SetKind(o)
	return o
}

func (o *OscillatorNode) Node() *graph.Node     { return o.node }
func (o *OscillatorNode) Frequency() *graph.Param { return o.freq }

// Start schedules playback to begin at absolute context time when (or
// immediately if when<=0), resetting phase to 0. A second call is a
// silent no-op and leaves phase and the existing schedule untouched.
func (o *OscillatorNode) Start(when float64) error {
	if o.schedule.Active() {
		return o.schedule.Start(o.ctx.CurrentTime(), when)
	}
	o.phase = 0
	return o.schedule.Start(o.ctx.CurrentTime(), when)
}

// Stop schedules playback to end at absolute context time when.
func (o *OscillatorNode) Stop(when float64) error {
	return o.schedule.Stop(when)
}

func (o *OscillatorNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	sr := ctx.SampleRate()
	t1 := blockTime + float64(graph.FramesPerBlock)/sr

	if o.outBuf != nil {
		ctx.Pool().Return(o.outBuf)
	}
	out := ctx.Pool().Rent(1)
	o.outBuf = out

	plays, startFrame, endFrame := o.schedule.PlayWindow(blockTime, t1, sr)
	if plays && endFrame > startFrame {
		out.MarkNonSilent()
		freqVals := o.freq.Values()
		ch := out.Chan(0)
		for i := startFrame; i < endFrame; i++ {
			ch[i] = float32(waveformAt(o.wave, o.phase))
			o.phase += float64(freqVals[i]) / sr
			o.phase -= math.Floor(o.phase)
		}
	}

	n.Outputs()[0].Publish(out)
	if o.schedule.CheckEnded(blockTime, t1) {
		n.FireEnded()
	}
	return nil
}

func (o *OscillatorNode) OnDispose() {
	if o.outBuf != nil {
		o.ctx.Pool().Return(o.outBuf)
		o.outBuf = nil
	}
}

func waveformAt(wave WaveType, phase float64) float64 {
	switch wave {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*phase - 1
	case WaveTriangle:
		return 4*math.Abs(phase-0.5) - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
