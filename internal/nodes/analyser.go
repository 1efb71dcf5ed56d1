// SPDX-License-Identifier: MIT
package nodes

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/the-byte-bender/graphaudio/internal/graph"
	"github.com/the-byte-bender/graphaudio/pkg/bitint"
)

// AnalyserNode is a pass-through tap: its output is its input, unchanged,
// but it also maintains a sliding FFT window over the input's first
// channel and publishes the resulting magnitude spectrum lock-free for a
// control-thread poller to read through GetMagnitudesInto. It never blocks
// the render thread on anything control-thread related.
type AnalyserNode struct {
	ctx  *graph.Context
	node *graph.Node

	fftSize int
	fftObj  *fourier.FFT
	window  []float64

	history   []float64
	fftInput  []float64
	fftOutput []complex128

	magnitudes atomic.Pointer[[]float64]
	outBuf     *graph.Block
}

// NewAnalyserNode builds a single-input, single-output tap with an FFT
// window of fftSize samples, rounded up to the next power of two and up
// to at least FramesPerBlock — slideHistory shifts the window by one
// block per Process call, so a window shorter than a block can never be
// slid.
func NewAnalyserNode(ctx *graph.Context, fftSize int) *AnalyserNode {
	if !bitint.IsPowerOfTwo(fftSize) {
		fftSize = bitint.NextPowerOfTwo(fftSize)
	}
	if fftSize < graph.FramesPerBlock {
		fftSize = graph.FramesPerBlock
	}

	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	n := graph.NewNode(ctx, "analyser", 1, 1)
	a := &AnalyserNode{
		ctx:       ctx,
		node:      n,
		fftSize:   fftSize,
		fftObj:    fourier.NewFFT(fftSize),
		window:    window,
		history:   make([]float64, fftSize),
		fftInput:  make([]float64, fftSize),
		fftOutput: make([]complex128, fftSize/2+1),
	}
	n.SetKind(a)
	return a
}

func (a *AnalyserNode) Node() *graph.Node { return a.node }

// FFTSize returns the analysis window size in samples.
func (a *AnalyserNode) FFTSize() int { return a.fftSize }

// FrequencyForBin returns the frequency in Hz that bin i of the published
// magnitude spectrum represents.
func (a *AnalyserNode) FrequencyForBin(i int) float64 {
	if i < 0 || i >= len(a.fftOutput) {
		return 0
	}
	return a.fftObj.Freq(i) * a.ctx.SampleRate()
}

// GetMagnitudesInto copies the most recently published spectrum into dst,
// which must be exactly FFTSize()/2+1 long. Safe to call from any thread
// concurrently with the render thread.
func (a *AnalyserNode) GetMagnitudesInto(dst []float64) error {
	if len(dst) != len(a.fftOutput) {
		return fmt.Errorf("analyser: destination length %d != spectrum length %d", len(dst), len(a.fftOutput))
	}
	p := a.magnitudes.Load()
	if p == nil {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, *p)
	return nil
}

func (a *AnalyserNode) Process(ctx *graph.Context, n *graph.Node, blockNumber int64, blockTime float64) error {
	in := n.Inputs()[0].Buf()

	var outCh int
	if in != nil {
		outCh = in.Channels()
	} else {
		outCh = 1
	}

	if a.outBuf != nil {
		ctx.Pool().Return(a.outBuf)
	}
	out := ctx.Pool().Rent(outCh)
	a.outBuf = out

	if in != nil {
		if !in.Silent {
			out.MarkNonSilent()
		}
		for c := 0; c < in.Channels() && c < outCh; c++ {
			copy(out.Chan(c)[:], in.Chan(c)[:])
		}
	}
	n.Outputs()[0].Publish(out)

	a.slideHistory(in)
	a.runFFT()

	return nil
}

func (a *AnalyserNode) slideHistory(in *graph.Block) {
	fb := graph.FramesPerBlock
	copy(a.history, a.history[fb:])
	tail := a.history[len(a.history)-fb:]
	if in == nil || in.Channels() == 0 {
		for i := range tail {
			tail[i] = 0
		}
		return
	}
	src := in.Chan(0)
	for i := 0; i < fb; i++ {
		tail[i] = float64(src[i])
	}
}

func (a *AnalyserNode) runFFT() {
	for i := range a.fftInput {
		a.fftInput[i] = a.history[i] * a.window[i]
	}
	_ = a.fftObj.Coefficients(a.fftOutput, a.fftInput)

	mags := make([]float64, len(a.fftOutput))
	for i, c := range a.fftOutput {
		mags[i] = cmplx.Abs(c)
	}
	a.magnitudes.Store(&mags)
}

func (a *AnalyserNode) OnDispose() {
	if a.outBuf != nil {
		a.ctx.Pool().Return(a.outBuf)
		a.outBuf = nil
	}
}
