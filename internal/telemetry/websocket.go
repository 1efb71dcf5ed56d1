package telemetry

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Broadcaster serves Stats snapshots to WebSocket clients connected at
// /stats, rate-limited so a burst of Send calls can't flood a slow
// client.
type Broadcaster struct {
	clients      map[*websocket.Conn]bool
	clientsMu    sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server
	lastSend     time.Time
	minInterval  time.Duration
}

// NewBroadcaster starts an HTTP server on addr (e.g. ":8080") serving a
// WebSocket endpoint at /stats.
func NewBroadcaster(addr string) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		minInterval: 50 * time.Millisecond,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", b.handleWebSocket)
	b.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetry: websocket server error: %v", err)
		}
	}()

	return b
}

func (b *Broadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade error: %v", err)
		return
	}

	b.clientsMu.Lock()
	b.clients[conn] = true
	b.clientsMu.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.clientsMu.Lock()
				delete(b.clients, conn)
				b.clientsMu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts stats to every connected client. It is rate-limited and
// silently drops a call that arrives too soon after the last one.
func (b *Broadcaster) Send(stats Stats) error {
	now := time.Now()
	if now.Sub(b.lastSend) < b.minInterval {
		return nil
	}
	b.lastSend = now

	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	b.clientsMu.Lock()
	for client := range b.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(b.clients, client)
		}
	}
	b.clientsMu.Unlock()
	return nil
}

// Close disconnects every client and shuts down the HTTP server.
func (b *Broadcaster) Close() error {
	b.clientsMu.Lock()
	for client := range b.clients {
		client.Close()
		delete(b.clients, client)
	}
	b.clientsMu.Unlock()
	return b.server.Close()
}
