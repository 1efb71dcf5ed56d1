// SPDX-License-Identifier: MIT
// Package decode turns encoded audio files into ready-to-play graph
// buffers. Each format decoder reads an entire file up front and
// produces a fully populated *graph.PlayableBuffer — the graph itself
// is block-synchronous and has no notion of streaming decode.
package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// Format identifies a decodable container/codec.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatVorbis
)

// FormatFromExtension guesses a Format from a file path's extension.
func FormatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg":
		return FormatVorbis
	default:
		return FormatUnknown
	}
}

// File decodes the file at path into a playable buffer, selecting a
// decoder from the file's extension.
func File(path string) (*graph.PlayableBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch fmt := FormatFromExtension(path); fmt {
	case FormatWAV:
		return WAV(f)
	case FormatMP3:
		return MP3(f)
	case FormatVorbis:
		return Vorbis(f)
	default:
		return nil, fmt2Error(path)
	}
}

func fmt2Error(path string) error {
	return fmt.Errorf("decode: unrecognized file extension for %q", path)
}

// drainSource pulls every frame out of src into a freshly allocated
// PlayableBuffer, deinterleaving as it goes. chunkFrames controls how
// many frames are pulled from src per ReadSamples call.
func drainSource(src Source, chunkFrames int) (*graph.PlayableBuffer, error) {
	channels := src.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("decode: source reports %d channels", channels)
	}
	if chunkFrames < 1 {
		chunkFrames = 4096
	}

	interleaved := make([]float32, chunkFrames*channels)
	planar := make([][]float32, channels)

	for {
		n, err := src.ReadSamples(interleaved)
		if n > 0 {
			frames := n / channels
			base := len(planar[0])
			for c := 0; c < channels; c++ {
				planar[c] = append(planar[c], make([]float32, frames)...)
			}
			for i := 0; i < frames; i++ {
				for c := 0; c < channels; c++ {
					planar[c][base+i] = interleaved[i*channels+c]
				}
			}
		}
		if err != nil {
			break
		}
	}

	frames := 0
	if channels > 0 {
		frames = len(planar[0])
	}
	buf := graph.NewPlayableBuffer(channels, frames, float64(src.SampleRate()))
	for c := 0; c < channels; c++ {
		copy(buf.Channel(c), planar[c])
	}
	buf.MarkReady()
	return buf, nil
}

// Source is the common shape every format decoder adapts its codec to.
// ReadSamples fills dst with interleaved samples (a multiple of
// Channels() per call) and returns the count read; it returns a non-nil
// error (io.EOF included) once no more samples remain.
type Source interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
}
