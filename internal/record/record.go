// SPDX-License-Identifier: MIT
// Package record captures a graph's rendered output to a WAV file.
package record

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/the-byte-bender/graphaudio/internal/graph"
)

const bitDepth = 32

// scale converts a [-1,1] float sample into a signed 32-bit PCM int,
// matching the bit depth the encoder is configured with.
const scale = 1<<31 - 1

// Writer pulls rendered blocks from a graph.Context one block at a
// time and appends them to a 32-bit PCM WAV file.
type Writer struct {
	file        *os.File
	enc         *wav.Encoder
	channels    int
	interleaved []float32
	ib          *audio.IntBuffer
}

// NewWriter creates path and prepares it to receive channels-wide
// interleaved blocks at sampleRate.
func NewWriter(path string, sampleRate, channels int) (*Writer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("record: channels must be >= 1, got %d", channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	return &Writer{
		file:        f,
		enc:         enc,
		channels:    channels,
		interleaved: make([]float32, graph.FramesPerBlock*channels),
		ib: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, graph.FramesPerBlock*channels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteBlock renders one block from ctx and appends it to the file.
func (w *Writer) WriteBlock(ctx *graph.Context) error {
	if err := ctx.ProcessBlockInterleaved(w.interleaved, w.channels); err != nil {
		return err
	}
	return w.encode(w.interleaved)
}

// WriteInterleaved appends an already-rendered block of interleaved
// samples, such as one handed to a graph.RealtimeDriver block observer.
// channels must match the channel count this Writer was created with.
func (w *Writer) WriteInterleaved(samples []float32, channels int) error {
	if channels != w.channels {
		return fmt.Errorf("record: got %d channels, writer expects %d", channels, w.channels)
	}
	return w.encode(samples)
}

func (w *Writer) encode(samples []float32) error {
	if cap(w.ib.Data) < len(samples) {
		w.ib.Data = make([]int, len(samples))
	}
	w.ib.Data = w.ib.Data[:len(samples)]
	for i, v := range samples {
		w.ib.Data[i] = floatToPCM32(v)
	}
	return w.enc.Write(w.ib)
}

// WriteFrames renders at least frames frames from ctx. The graph only
// advances in whole blocks, so the final block written may carry a few
// frames past the requested count.
func (w *Writer) WriteFrames(ctx *graph.Context, frames int) error {
	for written := 0; written < frames; written += graph.FramesPerBlock {
		if err := w.WriteBlock(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the WAV trailer and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

func floatToPCM32(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(float64(v) * scale)
}
