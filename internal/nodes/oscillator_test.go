// SPDX-License-Identifier: MIT
package nodes

import (
	"math"
	"testing"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

func TestOscillatorSilentBeforeStart(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	blk, err := ctx.ProcessBlock()
	if err != nil {
		t.Fatal(err)
	}
	if !blk.Silent {
		t.Fatal("an unstarted oscillator must produce silence")
	}
}

func TestOscillatorProducesSignalAfterStart(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Start(0); err != nil {
		t.Fatal(err)
	}
	if err := osc.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	blk, err := ctx.ProcessBlock()
	if err != nil {
		t.Fatal(err)
	}
	if blk.Silent {
		t.Fatal("a started oscillator must not be silent")
	}
}

func TestOscillatorWaveformShapes(t *testing.T) {
	if v := waveformAt(WaveSquare, 0.25); v != 1 {
		t.Fatalf("square(0.25) = %v, want 1", v)
	}
	if v := waveformAt(WaveSquare, 0.75); v != -1 {
		t.Fatalf("square(0.75) = %v, want -1", v)
	}
	if v := waveformAt(WaveSawtooth, 0); v != -1 {
		t.Fatalf("sawtooth(0) = %v, want -1", v)
	}
	if v := waveformAt(WaveSawtooth, 1); v != 1 {
		t.Fatalf("sawtooth(1) = %v, want 1", v)
	}
	if v := waveformAt(WaveTriangle, 0.5); v != -1 {
		t.Fatalf("triangle(0.5) = %v, want -1 (bottom of the triangle)", v)
	}
	if v := waveformAt(WaveSine, 0.25); math.Abs(v-1) > 1e-9 {
		t.Fatalf("sine(0.25) = %v, want 1 (peak)", v)
	}
}

func TestOscillatorStopSilencesAfterStopTime(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Start(0); err != nil {
		t.Fatal(err)
	}
	if err := osc.Stop(graph.FramesPerBlock / 48000.0); err != nil {
		t.Fatal(err)
	}
	if err := osc.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}
	blk, err := ctx.ProcessBlock()
	if err != nil {
		t.Fatal(err)
	}
	if !blk.Silent {
		t.Fatal("oscillator must be silent once the stop time has passed")
	}
}

// TestOscillatorFiresEndedOnceAndDisposes covers spec §8 Scenario 5: an
// oscillator started at t=0 and stopped at frame 100 fires its ended
// callback exactly once, on the first block whose end time reaches the
// stop time, and is disposed immediately after.
func TestOscillatorFiresEndedOnceAndDisposes(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Start(0); err != nil {
		t.Fatal(err)
	}
	if err := osc.Stop(100.0 / 48000.0); err != nil {
		t.Fatal(err)
	}
	if err := osc.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}

	fired := 0
	osc.Node().OnEnded(func() {
		fired++
		// A real caller disconnects a finished source from whatever it
		// feeds once notified; Dispose itself never touches the
		// downstream side of a connection.
		if err := osc.Node().Disconnect(0, ctx.Destination(), 0); err != nil {
			t.Error(err)
		}
	})

	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("ended fired %d times after the stop-crossing block, want 1", fired)
	}

	for i := 0; i < 3; i++ {
		if _, err := ctx.ProcessBlock(); err != nil {
			t.Fatal(err)
		}
	}
	if fired != 1 {
		t.Fatalf("ended fired %d times across later blocks, want exactly 1 total", fired)
	}
	if !osc.Node().Disposed() {
		t.Fatal("node must be disposed once ended has fired")
	}
}
