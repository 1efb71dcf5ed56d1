// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/the-byte-bender/graphaudio/internal/graph"
)

type wavSource struct {
	dec        *wav.Decoder
	sampleRate int
	channels   int
	ib         *audio.IntBuffer
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / s.channels
	if frames == 0 {
		return 0, nil
	}
	if cap(s.ib.Data) < frames*s.channels {
		s.ib.Data = make([]int, frames*s.channels)
	}
	s.ib.Data = s.ib.Data[:frames*s.channels]

	read, err := s.dec.PCMBuffer(s.ib)
	if read == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	scale := float32(1.0)
	switch s.ib.SourceBitDepth {
	case 8:
		scale = 1.0 / 128
	case 16:
		scale = 1.0 / 32768
	case 24:
		scale = 1.0 / 8388608
	case 32:
		scale = 1.0 / 2147483648
	}
	for i := 0; i < read; i++ {
		dst[i] = float32(s.ib.Data[i]) * scale
	}
	return read, err
}

// WAV decodes a complete WAV stream into a playable buffer. The reader
// must support seeking; the RIFF parser underneath rewinds to read
// chunk headers before settling on the data chunk.
func WAV(r io.ReadSeeker) (*graph.PlayableBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode: not a valid WAV stream")
	}
	format := dec.Format()
	channels := format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("decode: WAV stream reports %d channels", channels)
	}

	src := &wavSource{
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		ib: &audio.IntBuffer{
			Format:         format,
			SourceBitDepth: int(dec.BitDepth),
		},
	}
	return drainSource(src, 4096)
}
