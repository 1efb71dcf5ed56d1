// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/the-byte-bender/graphaudio/internal/telemetry"
)

func TestPublisherSendPacksExpectedLayout(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	pub := NewPublisher(sender)
	stats := telemetry.Stats{
		BlockNumber: 7,
		Generation:  1,
		Rents:       10,
		Returns:     9,
		Outstanding: 1,
		Underflows:  2,
	}
	if err := pub.Send(stats); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	if n != packetSize {
		t.Fatalf("packet size = %d, want %d", n, packetSize)
	}

	body := buf[:n]
	if body[0] != packetVersion {
		t.Fatalf("version byte = %d, want %d", body[0], packetVersion)
	}
	seq := binary.BigEndian.Uint32(body[1:5])
	if seq != 1 {
		t.Fatalf("sequence = %d, want 1", seq)
	}
	blockNumber := int64(binary.BigEndian.Uint64(body[13:21]))
	if blockNumber != stats.BlockNumber {
		t.Fatalf("block number = %d, want %d", blockNumber, stats.BlockNumber)
	}
	underflows := int64(binary.BigEndian.Uint64(body[53:61]))
	if underflows != stats.Underflows {
		t.Fatalf("underflows = %d, want %d", underflows, stats.Underflows)
	}
}

func TestPublisherSequenceIncrements(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	pub := NewPublisher(sender)
	for i := 0; i < 3; i++ {
		if err := pub.Send(telemetry.Stats{}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if pub.sequence != 3 {
		t.Fatalf("sequence = %d, want 3", pub.sequence)
	}
}

func TestSenderRejectsUseAfterClose(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.write([]byte("x")); err == nil {
		t.Fatal("write() after Close() must error")
	}
}
