package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/openlumen/pixelnode/internal/events"
)

// wsEnvelope is the wire shape of one pushed event.
type wsEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// hub fans runtime events out to websocket subscribers. Clients are
// write-only; anything they send is discarded.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	closed  bool

	unsubscribe []func()
}

func newHub(bus *events.Bus) *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
	if bus != nil {
		h.unsubscribe = append(h.unsubscribe,
			bus.Subscribe(func(ev events.ConfigAppliedEvent) { h.broadcast("config_applied", ev) }),
			bus.Subscribe(func(ev events.ConfigSavedEvent) { h.broadcast("config_saved", ev) }),
			bus.Subscribe(func(ev events.BufferResizedEvent) { h.broadcast("buffer_resized", ev) }),
			bus.Subscribe(func(ev events.PauseChangedEvent) { h.broadcast("pause_changed", ev) }),
			bus.Subscribe(func(ev events.InputSourceEvent) { h.broadcast("input_source", ev) }),
		)
	}
	return h
}

// serveWS upgrades the connection and registers it for event pushes.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ Websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("👀 Websocket client connected (%d active)", count)
	go h.readLoop(conn)
}

// readLoop drains inbound frames so control messages are handled, and
// unregisters the client when the connection drops.
func (h *hub) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// broadcast pushes one envelope to every connected client. Writes go out
// under the lock; gorilla connections do not allow concurrent writers.
func (h *hub) broadcast(eventType string, payload any) {
	data, err := json.Marshal(wsEnvelope{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("⚠️ Failed to encode %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// close disconnects every client and detaches from the event bus.
func (h *hub) close() {
	for _, unsub := range h.unsubscribe {
		unsub()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		_ = conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
