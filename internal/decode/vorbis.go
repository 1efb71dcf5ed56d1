// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// oggReader is the subset of *oggvorbis.Reader this package depends on,
// factored out so tests can substitute a mock.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec        oggReader
	sampleRate int
	channels   int
	frameBuf   []float32
}

func (s *vorbisSource) SampleRate() int { return s.sampleRate }
func (s *vorbisSource) Channels() int   { return s.channels }

// ReadSamples fills dst (sized in interleaved samples) by asking the
// decoder for the equivalent number of frames and re-expanding the
// frame count it reports back into a sample count.
func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	framesRequested := len(dst) / s.channels
	if cap(s.frameBuf) < framesRequested*s.channels {
		s.frameBuf = make([]float32, framesRequested*s.channels)
	}
	s.frameBuf = s.frameBuf[:framesRequested*s.channels]

	framesRead, err := s.dec.Read(s.frameBuf)
	if framesRead == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samplesRead := framesRead * s.channels
	copy(dst, s.frameBuf[:samplesRead])
	return samplesRead, err
}

// Vorbis decodes a complete Ogg/Vorbis stream into a playable buffer.
func Vorbis(r io.Reader) (*graph.PlayableBuffer, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode: vorbis: %w", err)
	}
	channels := dec.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("decode: vorbis stream reports %d channels", channels)
	}
	src := &vorbisSource{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   channels,
	}
	return drainSource(src, 4096)
}
