package telemetry

import (
	"sync"
	"time"

	"github.com/the-byte-bender/graphaudio/internal/log"
)

// Sink receives a Stats snapshot. Broadcaster and udp.Publisher both
// satisfy it, and tests can substitute their own.
type Sink interface {
	Send(Stats) error
}

// Publisher polls a Source on a ticker and fans each snapshot out to
// every attached Sink. Modeled on the teacher's UDP publisher's own
// ticker-driven goroutine and sync.Once-guarded shutdown.
type Publisher struct {
	src      Source
	interval time.Duration
	sinks    []Sink

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewPublisher returns a Publisher that snapshots src every interval.
func NewPublisher(src Source, interval time.Duration) *Publisher {
	return &Publisher{src: src, interval: interval}
}

// Attach registers a Sink to receive every future snapshot. Must be
// called before Start.
func (p *Publisher) Attach(sink Sink) {
	p.sinks = append(p.sinks, sink)
}

// Start launches the polling loop on its own goroutine.
func (p *Publisher) Start() {
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop()
}

func (p *Publisher) loop() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			stats := p.src.Snapshot()
			for _, sink := range p.sinks {
				if err := sink.Send(stats); err != nil {
					log.Errorf("telemetry: sink error: %v", err)
				}
			}
		}
	}
}

// Stop halts the polling loop and blocks until it has exited. Safe to
// call multiple times.
func (p *Publisher) Stop() {
	p.once.Do(func() {
		close(p.stopCh)
		<-p.doneCh
	})
}
