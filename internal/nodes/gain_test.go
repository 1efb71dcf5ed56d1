// SPDX-License-Identifier: MIT
package nodes

import (
	"testing"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

func TestGainNodeScalesSignal(t *testing.T) {
	ctx := graph.NewContext(48000)
	osc := NewOscillatorNode(ctx, WaveSine)
	if err := osc.Start(0); err != nil {
		t.Fatal(err)
	}
	gain := NewGainNode(ctx)
	gain.Gain().SetValue(0.5)

	if err := osc.Node().Connect(0, gain.Node(), 0); err != nil {
		t.Fatal(err)
	}
	if err := gain.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}
	blk, err := ctx.ProcessBlock()
	if err != nil {
		t.Fatal(err)
	}
	if blk.Silent {
		t.Fatal("gained oscillator output must not be silent")
	}
}

func TestGainNodeMirrorsInputChannelCount(t *testing.T) {
	ctx := graph.NewContext(48000)
	buf := graph.NewPlayableBuffer(4, 8, 48000)
	buf.MarkReady()
	src := NewBufferSourceNode(ctx, buf, false)
	if err := src.Start(0); err != nil {
		t.Fatal(err)
	}
	gain := NewGainNode(ctx)

	if err := src.Node().Connect(0, gain.Node(), 0); err != nil {
		t.Fatal(err)
	}
	if err := gain.Node().Connect(0, ctx.Destination(), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}

	gainOut := gain.Node().Outputs()[0].Buf()
	if gainOut == nil || gainOut.Channels() != 4 {
		t.Fatalf("gain output channels = %v, want 4 (mirrors the 4-channel buffer source)", gainOut)
	}
}

func TestGainNodeDisposeBeforeProcessIsSafe(t *testing.T) {
	ctx := graph.NewContext(48000)
	gain := NewGainNode(ctx)
	gain.Node().Dispose()
	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}
	// Dispose must not panic on a node that never ran Process.
}
