// SPDX-License-Identifier: MIT
package nodes

import (
	"testing"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

func TestInputCaptureStaysClosedBelowThreshold(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Start(0); err != nil {
		t.Fatal(err)
	}
	osc.Frequency().SetValue(0) // constant zero output: never crosses a positive threshold

	gate := NewInputCaptureNode(ctx)
	gate.SetThreshold(0.5)
	if err := osc.Node().Connect(0, gate.Node(), 0); err != nil {
		t.Fatal(err)
	}
	if err := gate.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}

	blk, err := ctx.ProcessBlock()
	if err != nil {
		t.Fatal(err)
	}
	if gate.IsOpen() {
		t.Fatal("gate must stay closed when peak amplitude never exceeds threshold")
	}
	if !blk.Silent {
		t.Fatal("a closed gate must mute its output")
	}
}

func TestInputCaptureDisabledAlwaysOpen(t *testing.T) {
	ctx := graph.NewContext(48000)
	gate := NewInputCaptureNode(ctx)
	gate.DisableGate()
	gate.SetThreshold(1.0) // would otherwise never open

	if err := gate.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}
	if !gate.IsOpen() {
		t.Fatal("a disabled gate must always report open")
	}
}

func TestInputCaptureThresholdClamped(t *testing.T) {
	gate := NewInputCaptureNode(graph.NewContext(48000))
	gate.SetThreshold(-1)
	if gate.Threshold() != 0 {
		t.Fatalf("Threshold() = %v, want 0 (clamped)", gate.Threshold())
	}
	gate.SetThreshold(5)
	if gate.Threshold() != 1 {
		t.Fatalf("Threshold() = %v, want 1 (clamped)", gate.Threshold())
	}
}

func TestPeakAmplitudeBranchlessScan(t *testing.T) {
	blk := graph.NewBlock(2)
	blk.Chan(0)[0] = -0.75
	blk.Chan(1)[10] = 0.5
	got := peakAmplitude(blk)
	if got != 0.75 {
		t.Fatalf("peakAmplitude = %v, want 0.75 (largest magnitude across all channels)", got)
	}
}
