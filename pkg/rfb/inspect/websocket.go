// Package inspect provides a read-only WebSocket mirror of dirty-rectangle
// refresh activity, a supplemental observability surface alongside the RFB
// protocol itself (no client input is accepted over this connection).
package inspect

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Event is one broadcast record, currently a drained rectangle ("rect"),
// timestamped by the caller; Broadcast does not stamp events itself.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	W         int    `json:"w,omitempty"`
	H         int    `json:"h,omitempty"`
	Clients   int    `json:"clients,omitempty"`
}

// Hub fans out Events to every connected viewer. There is no per-client
// subscribe state: every viewer sees every event.
type Hub struct {
	mu       sync.Mutex
	viewers  map[chan []byte]struct{}
}

// NewHub constructs an empty Hub ready to accept viewer connections.
func NewHub() *Hub {
	return &Hub{viewers: make(map[chan []byte]struct{})}
}

// Broadcast marshals ev and fans it out to every connected viewer,
// dropping it for any viewer whose outbound queue is full rather than
// blocking the caller (refreshTick must never stall on a slow viewer).
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[inspect] failed to marshal event: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.viewers {
		select {
		case ch <- data:
		default:
			log.Printf("[inspect] viewer queue full, dropping event")
		}
	}
}

func (h *Hub) register() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.viewers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(ch chan []byte) {
	h.mu.Lock()
	delete(h.viewers, ch)
	h.mu.Unlock()
	close(ch)
}

// ServeHTTP upgrades the request to a WebSocket and streams Events to it
// until the client disconnects. Inbound messages are never read for
// content; only ping/pong keepalive is handled.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[inspect] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ch := h.register()
	defer h.unregister(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
