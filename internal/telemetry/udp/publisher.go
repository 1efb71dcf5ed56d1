// SPDX-License-Identifier: MIT
// Package udp sends telemetry.Stats snapshots as fixed-layout binary
// packets, the same wire discipline the teacher used for FFT magnitude
// packets: a pre-allocated buffer, BigEndian fields, one packet per Send.
package udp

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/the-byte-bender/graphaudio/internal/telemetry"
)

// packetVersion lets a future layout change coexist with old clients.
const packetVersion = uint8(1)

// Sender wraps a connected UDP socket. Separated from Publisher so a
// caller can swap transports without touching the packet format.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewSender dials targetAddress ("host:port") and returns a Sender ready
// to transmit.
func NewSender(targetAddress string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("telemetry/udp: resolve %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry/udp: dial %q: %w", targetAddress, err)
	}
	return &Sender{conn: conn}, nil
}

func (s *Sender) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("telemetry/udp: sender closed")
	}
	_, err := s.conn.Write(data)
	return err
}

// Close closes the underlying socket. Safe to call more than once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// packetSize is fixed: 1 version byte + 1 sequence uint32 + 1 timestamp
// (unix nanos, int64) + 6 int64 stat fields.
const packetSize = 1 + 4 + 8 + 8*6

// Publisher packs each Stats snapshot into a fixed binary layout and
// writes it to a Sender. It implements telemetry.Sink.
type Publisher struct {
	sender   *Sender
	sequence uint32
	scratch  [packetSize]byte
}

// NewPublisher builds a Publisher that writes through sender.
func NewPublisher(sender *Sender) *Publisher {
	return &Publisher{sender: sender}
}

// Send packs stats and transmits it. Implements telemetry.Sink.
func (p *Publisher) Send(stats telemetry.Stats) error {
	p.sequence++

	b := p.scratch[:0]
	b = append(b, packetVersion)
	b = binary.BigEndian.AppendUint32(b, p.sequence)
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Timestamp.UnixNano()))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.BlockNumber))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Generation))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Rents))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Returns))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Outstanding))
	b = binary.BigEndian.AppendUint64(b, uint64(stats.Underflows))

	return p.sender.write(b)
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}
