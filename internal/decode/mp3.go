// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/the-byte-bender/graphaudio/internal/graph"
)

// mp3 always decodes to 16-bit little-endian stereo PCM.
const mp3Channels = 2

// mp3Reader is the subset of *gomp3.Decoder this package depends on,
// factored out so tests can substitute a mock.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
}

func (s *mp3Source) SampleRate() int { return s.sampleRate }
func (s *mp3Source) Channels() int   { return mp3Channels }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		low := uint16(s.buf[2*i])
		high := uint16(s.buf[2*i+1])
		dst[i] = float32(int16(low|(high<<8))) / 32768.0
	}
	return samples, err
}

// MP3 decodes a complete MP3 stream into a playable stereo buffer.
func MP3(r io.Reader) (*graph.PlayableBuffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode: mp3: %w", err)
	}
	src := &mp3Source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}
	return drainSource(src, 4096)
}
