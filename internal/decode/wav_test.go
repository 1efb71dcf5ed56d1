// SPDX-License-Identifier: MIT
package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, sampleRate, bitDepth, channels int, frames [][]int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create temp wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	data := make([]int, 0, len(frames)*channels)
	for _, frame := range frames {
		data = append(data, frame...)
	}
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		t.Fatalf("write wav data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	return path
}

func TestWAVDecodesKnownSamples(t *testing.T) {
	frames := [][]int{{0, 0}, {16384, -16384}, {32767, -32768}}
	path := writeTestWAV(t, 44100, 16, 2, frames)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()

	buf, err := WAV(f)
	if err != nil {
		t.Fatalf("WAV() error = %v", err)
	}
	if buf.Channels() != 2 {
		t.Fatalf("Channels() = %d, want 2", buf.Channels())
	}
	if buf.Frames() != len(frames) {
		t.Fatalf("Frames() = %d, want %d", buf.Frames(), len(frames))
	}
	if buf.SourceSampleRate() != 44100 {
		t.Fatalf("SourceSampleRate() = %v, want 44100", buf.SourceSampleRate())
	}
	if !buf.Ready() {
		t.Fatal("decoded buffer must be marked ready")
	}

	left, right := buf.Channel(0), buf.Channel(1)
	wantLeft := []float32{0, 16384.0 / 32768.0, 32767.0 / 32768.0}
	wantRight := []float32{0, -16384.0 / 32768.0, -1.0}
	for i := range wantLeft {
		if diff := left[i] - wantLeft[i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("left[%d] = %v, want %v", i, left[i], wantLeft[i])
		}
		if diff := right[i] - wantRight[i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("right[%d] = %v, want %v", i, right[i], wantRight[i])
		}
	}
}

func TestWAVRejectsInvalidStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open bad file: %v", err)
	}
	defer f.Close()

	if _, err := WAV(f); err == nil {
		t.Fatal("WAV() on a non-WAV stream must error")
	}
}

func TestFormatFromExtension(t *testing.T) {
	cases := map[string]Format{
		"song.wav":  FormatWAV,
		"song.MP3":  FormatMP3,
		"song.ogg":  FormatVorbis,
		"song.flac": FormatUnknown,
	}
	for path, want := range cases {
		if got := FormatFromExtension(path); got != want {
			t.Errorf("FormatFromExtension(%q) = %v, want %v", path, got, want)
		}
	}
}
