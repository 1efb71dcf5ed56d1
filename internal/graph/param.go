// SPDX-License-Identifier: MIT
package graph

import (
	"math"
	"sort"
	"sync/atomic"
)

// ParamRate selects whether a parameter computes one value per block
// (control-rate) or one value per sample (audio-rate).
type ParamRate int

const (
	RateControl ParamRate = iota
	RateAudio
)

// EventKind tags an AutomationEvent's variant.
type EventKind int

const (
	EventSetValue EventKind = iota
	EventLinearRamp
	EventExponentialRamp
	EventSetTarget
)

// AutomationEvent is the tagged union of schedulable automation events.
// Value holds the target value for SetValue/LinearRamp/ExponentialRamp;
// Target and TimeConstant are used only by SetTarget.
type AutomationEvent struct {
	Kind         EventKind
	Time         float64
	Value        float64
	Target       float64
	TimeConstant float64
}

// Param is an AudioParam: a name, a default/min/max triple, a rate, an
// atomically-updated intrinsic scalar, an append-only (per publication)
// sorted event list, a hidden summing input for audio-rate modulation,
// and a per-block computed-values array.
type Param struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Rate    ParamRate

	intrinsicBits atomic.Uint64
	events        atomic.Pointer[[]AutomationEvent]

	modInput *InputPort

	computed          [FramesPerBlock]float32
	lastComputedBlock int64
}

// NewParam constructs a parameter with the given bounds and rate, seeded
// with def as both the default and the initial intrinsic value. The
// hidden modulation input always has exactly one channel and truncates
// (never scales) a connected modulator to that single channel, matching
// "sum its first channel" literally.
func NewParam(name string, def, min, max float64, rate ParamRate) *Param {
	p := &Param{
		Name:              name,
		Default:           def,
		Min:               min,
		Max:               max,
		Rate:              rate,
		lastComputedBlock: -1,
	}
	p.intrinsicBits.Store(math.Float64bits(def))
	empty := []AutomationEvent{}
	p.events.Store(&empty)
	p.modInput = newInputPort(nil, 0)
	p.modInput.SetNominalChannels(1)
	p.modInput.SetChannelCountMode(ChannelCountExplicit)
	p.modInput.SetChannelInterpretation(InterpretationDiscrete)
	return p
}

// ModInput exposes the hidden summing input so Node.ConnectToParam can
// wire a modulation source into it.
func (p *Param) ModInput() *InputPort { return p.modInput }

// Value returns the current intrinsic scalar, ignoring any scheduled
// events — equivalent to the value compute would produce at a time with
// no automation.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.intrinsicBits.Load())
}

// SetValue sets the intrinsic scalar and atomically cancels every
// scheduled event.
func (p *Param) SetValue(v float64) {
	empty := []AutomationEvent{}
	p.events.Store(&empty)
	p.intrinsicBits.Store(math.Float64bits(v))
}

func (p *Param) publish(mutate func([]AutomationEvent) []AutomationEvent) {
	for {
		old := p.events.Load()
		var oldSlice []AutomationEvent
		if old != nil {
			oldSlice = *old
		}
		next := mutate(oldSlice)
		if p.events.CompareAndSwap(old, &next) {
			return
		}
	}
}

func insertSorted(events []AutomationEvent, e AutomationEvent) []AutomationEvent {
	out := make([]AutomationEvent, 0, len(events)+1)
	for _, ev := range events {
		if ev.Time != e.Time {
			out = append(out, ev)
		}
	}
	i := sort.Search(len(out), func(i int) bool { return out[i].Time > e.Time })
	out = append(out, AutomationEvent{})
	copy(out[i+1:], out[i:])
	out[i] = e
	return out
}

// SetValueAtTime schedules a set-value event at time t, superseding any
// event already scheduled at exactly that time.
func (p *Param) SetValueAtTime(v, t float64) {
	p.publish(func(ev []AutomationEvent) []AutomationEvent {
		return insertSorted(ev, AutomationEvent{Kind: EventSetValue, Time: t, Value: v})
	})
}

// LinearRampToValueAtTime schedules a linear ramp ending at value v at
// time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.publish(func(ev []AutomationEvent) []AutomationEvent {
		return insertSorted(ev, AutomationEvent{Kind: EventLinearRamp, Time: t, Value: v})
	})
}

// ExponentialRampToValueAtTime schedules an exponential ramp ending at
// value v at time t. v must be strictly positive.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) error {
	if v <= 0 {
		return newArgErr("exponential ramp target must be > 0, got %v", v)
	}
	p.publish(func(ev []AutomationEvent) []AutomationEvent {
		return insertSorted(ev, AutomationEvent{Kind: EventExponentialRamp, Time: t, Value: v})
	})
	return nil
}

// SetTargetAtTime schedules an exponential approach toward target
// starting at time t with time constant tau (seconds).
func (p *Param) SetTargetAtTime(target, t, tau float64) {
	p.publish(func(ev []AutomationEvent) []AutomationEvent {
		return insertSorted(ev, AutomationEvent{Kind: EventSetTarget, Time: t, Target: target, TimeConstant: tau})
	})
}

// CancelScheduledValues drops the suffix of events with time >= t0.
func (p *Param) CancelScheduledValues(t0 float64) {
	p.publish(func(ev []AutomationEvent) []AutomationEvent {
		out := make([]AutomationEvent, 0, len(ev))
		for _, e := range ev {
			if e.Time < t0 {
				out = append(out, e)
			}
		}
		return out
	})
}

// compute runs once per node per block (invoked from Node.processInternal
// before input pulls) and fills the per-sample computed-values array.
func (p *Param) compute(ctx *Context, blockNumber int64, blockTime float64) error {
	if p.lastComputedBlock == blockNumber {
		return nil
	}
	p.lastComputedBlock = blockNumber

	modBlock, err := p.modInput.pull(ctx, blockNumber, blockTime)
	if err != nil {
		return err
	}

	eventsPtr := p.events.Load()
	var events []AutomationEvent
	if eventsPtr != nil {
		events = *eventsPtr
	}
	intrinsic := p.Value()
	sr := ctx.SampleRate()

	if p.Rate == RateControl {
		v := valueAtTime(events, intrinsic, blockTime)
		mod := float64(0)
		if modBlock != nil {
			mod = float64(modBlock.Chan(0)[0])
		}
		final := clamp(v+mod, p.Min, p.Max)
		for i := 0; i < FramesPerBlock; i++ {
			p.computed[i] = float32(final)
		}
		return nil
	}

	for i := 0; i < FramesPerBlock; i++ {
		t := blockTime + float64(i)/sr
		v := valueAtTime(events, intrinsic, t)
		mod := float64(0)
		if modBlock != nil {
			mod = float64(modBlock.Chan(0)[i])
		}
		p.computed[i] = float32(clamp(v+mod, p.Min, p.Max))
	}
	return nil
}

// Values returns this block's computed per-sample values. Valid only
// after compute has run for the current block.
func (p *Param) Values() *[FramesPerBlock]float32 { return &p.computed }

// ValueAt returns the value at the given absolute time, clamped to
// [min,max], ignoring modulation. Exposed for tests and for nodes that
// need a single scalar (e.g. to seed internal DSP state) rather than the
// full per-sample array.
func (p *Param) ValueAt(t float64) float64 {
	eventsPtr := p.events.Load()
	var events []AutomationEvent
	if eventsPtr != nil {
		events = *eventsPtr
	}
	return clamp(valueAtTime(events, p.Value(), t), p.Min, p.Max)
}

func (p *Param) teardown(ctx *Context) {
	p.modInput.teardown(ctx)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// valueAtTime evaluates the automation value at absolute time t against
// the sorted event list and the intrinsic baseline, per the scan rules:
// baseline advances across set-value/ramp events (set-target never
// advances it), and the segment containing t is resolved by the kind of
// the event immediately after t and, failing that, the kind of the event
// immediately before t.
func valueAtTime(events []AutomationEvent, intrinsic float64, t float64) float64 {
	n := len(events)
	if n == 0 {
		return intrinsic
	}

	i := sort.Search(n, func(i int) bool { return events[i].Time > t })
	if i == 0 {
		return intrinsic
	}

	if i < n {
		e := events[i]
		prev := events[i-1]
		switch e.Kind {
		case EventLinearRamp:
			return linearInterp(prev.Value, prev.Time, e.Value, e.Time, t)
		case EventExponentialRamp:
			return expInterp(prev.Value, prev.Time, e.Value, e.Time, t)
		}
		if prev.Kind == EventSetTarget {
			return targetApproach(prev, runningBaseline(events, intrinsic, i-1), t)
		}
		return prev.Value
	}

	last := events[n-1]
	if last.Kind == EventSetTarget {
		return targetApproach(last, runningBaseline(events, intrinsic, n-1), t)
	}
	return last.Value
}

func runningBaseline(events []AutomationEvent, intrinsic float64, upTo int) float64 {
	b := intrinsic
	for j := 0; j < upTo; j++ {
		if events[j].Kind != EventSetTarget {
			b = events[j].Value
		}
	}
	return b
}

func targetApproach(e AutomationEvent, baselineAtStart, t float64) float64 {
	tau := e.TimeConstant
	if tau < 0.001 {
		tau = 0.001
	}
	return e.Target + (baselineAtStart-e.Target)*math.Exp(-(t-e.Time)/tau)
}

func linearInterp(v0, t0, v1, t1, t float64) float64 {
	if t1 == t0 {
		return v1
	}
	frac := (t - t0) / (t1 - t0)
	return v0 + (v1-v0)*frac
}

func expInterp(v0, t0, v1, t1, t float64) float64 {
	if v0 <= 0 || v1 <= 0 {
		return linearInterp(v0, t0, v1, t1, t)
	}
	if t1 == t0 {
		return v1
	}
	frac := (t - t0) / (t1 - t0)
	return v0 * math.Pow(v1/v0, frac)
}
