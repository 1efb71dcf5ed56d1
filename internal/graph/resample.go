// SPDX-License-Identifier: MIT
package graph

// Resampler is a per-channel cubic-Hermite (Catmull-Rom) streaming
// fractional-rate resampler. It holds a 4-sample sliding window (S0..S3)
// and a fractional read position Pos, expressed in input samples, of the
// next output sample relative to S1. Process consumes from input to fill
// output, advancing Pos by rate per output sample and shifting in a new
// input sample whenever Pos crosses 1.0.
type Resampler struct {
	s0, s1, s2, s3 float32
	pos            float64
}

// NewResampler returns a resampler with its window zeroed.
func NewResampler() *Resampler {
	return &Resampler{}
}

// Process fills output from input at the given rate (input samples per
// output sample: rate>1 downsamples, rate<1 upsamples) and returns how
// many input samples were consumed and how many output samples were
// produced. It stops early, with fewer output samples produced than
// requested, once input is exhausted — the caller is expected to refill
// input and call again to continue the stream.
func (r *Resampler) Process(input, output []float32, rate float64) (consumed, produced int) {
	inIdx := 0
	outIdx := 0
	for outIdx < len(output) {
		for r.pos >= 1.0 {
			if inIdx >= len(input) {
				return inIdx, outIdx
			}
			r.s0, r.s1, r.s2, r.s3 = r.s1, r.s2, r.s3, input[inIdx]
			inIdx++
			r.pos -= 1.0
		}
		output[outIdx] = catmullRom(r.s0, r.s1, r.s2, r.s3, float32(r.pos))
		outIdx++
		r.pos += rate
	}
	return inIdx, outIdx
}

// SetupLoop primes the sliding window to cross a loop boundary without a
// discontinuity: end2/end1 are the last two samples before the loop
// point, start1/start2 are the first two samples after it. The fractional
// position resets to 0, meaning the very next output sample lands exactly
// on end1 and the outputs after it interpolate from end1 into start1.
func (r *Resampler) SetupLoop(end2, end1, start1, start2 float32) {
	r.s0, r.s1, r.s2, r.s3 = end2, end1, start1, start2
	r.pos = 0
}

// Reset clears the window and fractional position, for reuse on a fresh
// stream.
func (r *Resampler) Reset() {
	r.s0, r.s1, r.s2, r.s3 = 0, 0, 0, 0
	r.pos = 0
}

func catmullRom(p0, p1, p2, p3, t float32) float32 {
	a := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	b := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	c := -0.5*p0 + 0.5*p2
	d := p1
	return ((a*t+b)*t+c)*t + d
}
