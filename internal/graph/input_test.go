// SPDX-License-Identifier: MIT
package graph

import "testing"

func TestMixIntoSpeakersMonoToStereoBroadcasts(t *testing.T) {
	dst := NewBlock(2)
	src := NewBlock(1)
	src.Chan(0)[0] = 4
	src.MarkNonSilent()

	mixInto(dst, src, InterpretationSpeakers)

	if dst.Chan(0)[0] != 4 || dst.Chan(1)[0] != 4 {
		t.Fatalf("mono source must broadcast to every destination channel")
	}
	if dst.Silent {
		t.Fatal("destination must be marked non-silent")
	}
}

func TestMixIntoSpeakersStereoToMonoEqualPowerDownmix(t *testing.T) {
	dst := NewBlock(1)
	src := NewBlock(2)
	src.Chan(0)[0] = 1
	src.Chan(1)[0] = 1
	src.MarkNonSilent()

	mixInto(dst, src, InterpretationSpeakers)

	want := float32(2.0 / sqrt2)
	if diff := dst.Chan(0)[0] - want; diff > 1e-5 || diff < -1e-5 {
		t.Fatalf("downmixed sample = %v, want ~%v", dst.Chan(0)[0], want)
	}
}

const sqrt2 = 1.4142135623730951

func TestMixIntoDiscreteTruncatesWithoutScaling(t *testing.T) {
	dst := NewBlock(1)
	src := NewBlock(2)
	src.Chan(0)[0] = 5
	src.Chan(1)[0] = 9
	src.MarkNonSilent()

	mixInto(dst, src, InterpretationDiscrete)

	if dst.Chan(0)[0] != 5 {
		t.Fatalf("discrete downmix sample = %v, want 5 (channel 0 only, no scaling)", dst.Chan(0)[0])
	}
}

func TestMixIntoAccumulatesAcrossMultipleSources(t *testing.T) {
	dst := NewBlock(1)
	srcA := NewBlock(1)
	srcA.Chan(0)[0] = 1
	srcA.MarkNonSilent()
	srcB := NewBlock(1)
	srcB.Chan(0)[0] = 2
	srcB.MarkNonSilent()

	mixInto(dst, srcA, InterpretationSpeakers)
	mixInto(dst, srcB, InterpretationSpeakers)

	if dst.Chan(0)[0] != 3 {
		t.Fatalf("accumulated sample = %v, want 3", dst.Chan(0)[0])
	}
}

func TestInputPortEffectiveChannelsModes(t *testing.T) {
	ctx := NewContext(DefaultSampleRate)
	src := newConstNode(ctx, 1, 4)
	dst := NewNode(ctx, "sink", 1, 0)

	if err := src.Connect(0, dst, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.ProcessBlock(); err != nil {
		t.Fatal(err)
	}

	if got := dst.inputs[0].effectiveChannels(ctx, 0); got != 4 {
		t.Fatalf("ChannelCountMax effective channels = %d, want 4", got)
	}

	dst.inputs[0].SetChannelCountMode(ChannelCountClampedMax)
	dst.inputs[0].SetNominalChannels(2)
	if got := dst.inputs[0].effectiveChannels(ctx, 0); got != 2 {
		t.Fatalf("ChannelCountClampedMax effective channels = %d, want 2 (clamped)", got)
	}

	dst.inputs[0].SetChannelCountMode(ChannelCountExplicit)
	if got := dst.inputs[0].effectiveChannels(ctx, 0); got != 2 {
		t.Fatalf("ChannelCountExplicit effective channels = %d, want nominal 2", got)
	}
}

func TestInputPortPullWithNoSourcesYieldsSilence(t *testing.T) {
	ctx := NewContext(DefaultSampleRate)
	n := NewNode(ctx, "sink", 1, 0)
	blk, err := n.inputs[0].pull(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !blk.Silent {
		t.Fatal("unconnected input must pull silence")
	}
}
