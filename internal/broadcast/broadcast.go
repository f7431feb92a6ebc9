// Package broadcast fans a single shop-wide banner message out to every
// connected client over websockets. The hub retains the current message
// so late joiners see it on connect, and mirrors new broadcasts to any
// configured chat notifiers.
package broadcast

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ckshop/shopflow/internal/capability"
)

// Message types on the wire.
const (
	TypeBroadcast = "BROADCAST"
	TypeClear     = "CLEAR_BROADCAST"
)

// Message is the websocket frame. A nil payload clears the banner.
type Message struct {
	Type    string  `json:"type"`
	Payload *string `json:"payload"`
}

// Notifier mirrors a broadcast to an external chat platform.
type Notifier interface {
	Post(text string) error
}

// Hub owns the retained broadcast and the client set.
type Hub struct {
	upgrader  websocket.Upgrader
	notifiers []Notifier

	mu      sync.Mutex
	current *string
	clients map[*websocket.Conn]bool
}

func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		notifiers: notifiers,
		clients:   map[*websocket.Conn]bool{},
	}
}

// Current returns the retained broadcast, nil when none is active.
func (h *Hub) Current() *string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Set publishes a broadcast from role. Denied roles change nothing.
func (h *Hub) Set(role, text string) error {
	if !capability.CanBroadcast(role) {
		log.Printf("broadcast: denied for role %s", role)
		return ErrDenied
	}
	h.publish(&text)
	for _, n := range h.notifiers {
		if err := n.Post(text); err != nil {
			log.Printf("broadcast: mirror: %v", err)
		}
	}
	return nil
}

// Clear retracts the active broadcast.
func (h *Hub) Clear(role string) error {
	if !capability.CanBroadcast(role) {
		log.Printf("broadcast: denied for role %s", role)
		return ErrDenied
	}
	h.publish(nil)
	return nil
}

func (h *Hub) publish(payload *string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = payload
	msg := Message{Type: TypeBroadcast, Payload: payload}
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ServeWS upgrades the request and pumps broadcast frames until the
// client goes away. Inbound BROADCAST and CLEAR_BROADCAST frames are
// honored subject to role's capability.
func (h *Hub) ServeWS(role string, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	// Registration and the retained-frame replay share one critical
	// section: the conn must never see a concurrent publish writer.
	h.mu.Lock()
	h.clients[conn] = true
	if h.current != nil {
		if err := conn.WriteJSON(Message{Type: TypeBroadcast, Payload: h.current}); err != nil {
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			return nil
		}
	}
	h.mu.Unlock()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			h.drop(conn)
			return nil
		}
		switch msg.Type {
		case TypeBroadcast:
			if msg.Payload != nil {
				if err := h.Set(role, *msg.Payload); err != nil {
					log.Printf("broadcast: ws set: %v", err)
				}
			}
		case TypeClear:
			if err := h.Clear(role); err != nil {
				log.Printf("broadcast: ws clear: %v", err)
			}
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
