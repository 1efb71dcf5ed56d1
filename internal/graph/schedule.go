// SPDX-License-Identifier: MIT
package graph

import "math"

// Schedule is the start/stop timeline a source-like NodeKind embeds to get
// sample-accurate scheduling for free. It holds absolute context times, not
// block-relative offsets, so a node can be started and stopped long before
// it is ever pulled.
type Schedule struct {
	startTime   float64
	stopTime    float64
	started     bool
	singleStart bool
	endedFired  bool
}

// NewSchedule returns a Schedule with no start or stop scheduled yet.
// singleStart marks node kinds that hold pre-loaded content and can only
// ever be started once (a buffer source); false marks kinds on which a
// second Start is silently ignored (a tone generator).
func NewSchedule(singleStart bool) *Schedule {
	return &Schedule{
		startTime:   math.NaN(),
		stopTime:    math.NaN(),
		singleStart: singleStart,
	}
}

// Start records when, one absolute context time, playback should begin. A
// non-positive when is normalized to now by the caller before reaching
// here. Calling Start a second time on a single-start schedule is an
// invalid-operation error; on a repeatable schedule a second call is silently
// ignored, leaving the original start/stop timeline untouched.
func (s *Schedule) Start(now, when float64) error {
	if when <= 0 {
		when = now
	}
	if s.started {
		if s.singleStart {
			return newInvalidOpErr("source can only be started once")
		}
		return nil
	}
	s.started = true
	s.startTime = when
	s.stopTime = math.NaN()
	s.endedFired = false
	return nil
}

// Stop records when playback should end. Calling Stop before Start, or
// with a time at or before the scheduled start, is rejected so a node
// never observes a stop time earlier than its start time.
func (s *Schedule) Stop(when float64) error {
	if !s.started {
		return newInvalidOpErr("source has not been started")
	}
	if when <= s.startTime {
		return newArgErr("stop time %.6f must be after start time %.6f", when, s.startTime)
	}
	s.stopTime = when
	return nil
}

// Active reports whether Start has been called; it stays true after the
// stop time has passed.
func (s *Schedule) Active() bool { return s.started }

// PlayWindow reports whether the source produces any signal during the
// block spanning [t0,t1), and if so the frame range [startFrame,endFrame)
// within that block that falls inside the scheduled window. Frames outside
// that range must be silence; startFrame/endFrame are rounded so that the
// very first frame at or after startTime, and the last frame strictly
// before stopTime, are both included.
func (s *Schedule) PlayWindow(t0, t1, sampleRate float64) (plays bool, startFrame, endFrame int) {
	if !s.started || !(t1 > s.startTime) {
		return false, 0, 0
	}
	if !math.IsNaN(s.stopTime) && !(t0 < s.stopTime) {
		return false, 0, 0
	}

	startFrame = 0
	endFrame = FramesPerBlock

	if t0 < s.startTime && s.startTime < t1 {
		f := int(math.Ceil((s.startTime - t0) * sampleRate))
		startFrame = clampFrame(f)
	}
	if !math.IsNaN(s.stopTime) && t0 < s.stopTime && s.stopTime < t1 {
		f := int(math.Floor((s.stopTime - t0) * sampleRate))
		endFrame = clampFrame(f)
	}
	if endFrame < startFrame {
		endFrame = startFrame
	}
	return true, startFrame, endFrame
}

// CheckEnded reports, once, whether the block spanning [t0,t1) is the one
// in which the scheduled stop time is crossed — the signal for a NodeKind
// to fire an "ended" notification and dispose itself. It returns false on
// every call before the crossing and every call after the first true.
func (s *Schedule) CheckEnded(t0, t1 float64) bool {
	if s.endedFired || math.IsNaN(s.stopTime) {
		return false
	}
	if t1 >= s.stopTime {
		s.endedFired = true
		return true
	}
	return false
}

func clampFrame(f int) int {
	if f < 0 {
		return 0
	}
	if f > FramesPerBlock {
		return FramesPerBlock
	}
	return f
}
