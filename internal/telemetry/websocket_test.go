// SPDX-License-Identifier: MIT
package telemetry

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve a port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestBroadcasterDeliversStatsToClient(t *testing.T) {
	addr := freeAddr(t)
	b := NewBroadcaster(addr)
	defer b.Close()

	// Give the listener a moment to come up.
	var conn *websocket.Conn
	var err error
	url := "ws://" + addr + "/stats"
	for i := 0; i < 20; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	want := Stats{BlockNumber: 42}
	if err := b.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var got Stats
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.BlockNumber != want.BlockNumber {
		t.Fatalf("BlockNumber = %d, want %d", got.BlockNumber, want.BlockNumber)
	}
}

func TestBroadcasterRateLimitsRapidSends(t *testing.T) {
	addr := freeAddr(t)
	b := NewBroadcaster(addr)
	defer b.Close()

	b.lastSend = time.Now()
	if err := b.Send(Stats{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	// Immediately after setting lastSend, a second call within
	// minInterval should be a silent no-op rather than an error.
}
