package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/models"

	"github.com/gorilla/websocket"
)

// Event is pushed to every websocket subscribed to Session.
type Event struct {
	Type    string           `json:"type"`
	Session string           `json:"session"`
	State   models.ViewState `json:"state"`
	Screen  models.Screen    `json:"screen"`
	At      time.Time        `json:"at"`
}

// Hub fans view updates out to the websocket clients of each session.
type Hub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// published is set once Publish has queued an event for this client.
	published bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Served behind api-gateway which enforces origin policy.
				return true
			},
		},
		sessions: map[string]map[*client]struct{}{},
	}
}

// Serve upgrades the request and streams events for session until the peer goes
// away. initial, when non-nil, is called after the client is subscribed and its
// event is sent unless a published event already reached the client.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, session string, initial func() *Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "session", session, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.addClient(session, c)
	if initial != nil {
		if ev := initial(); ev != nil {
			h.sendInitial(session, c, *ev)
		}
	}

	go h.writePump(c)
	h.readPump(session, c)
}

func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := encode(ev)
	if err != nil {
		slog.Error("encode view event", "session", ev.Session, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[ev.Session] {
		select {
		case c.send <- b:
			c.published = true
		default:
			// Slow client; drop it.
			h.dropLocked(ev.Session, c)
		}
	}
}

// CloseSession disconnects every client of session.
func (h *Hub) CloseSession(session string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[session] {
		h.dropLocked(session, c)
	}
}

// Subscribers reports how many clients are attached to session.
func (h *Hub) Subscribers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[session])
}

func encode(ev Event) ([]byte, error) {
	if ev.Type == "" {
		ev.Type = "view"
	}
	return json.Marshal(ev)
}

// sendInitial queues ev for c. Every transition after subscription is
// published, so once c has a published event ev can only be older.
func (h *Hub) sendInitial(session string, c *client, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := encode(ev)
	if err != nil {
		slog.Error("encode view event", "session", session, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[session][c]; !ok || c.published {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (h *Hub) addClient(session string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[session]
	if !ok {
		set = map[*client]struct{}{}
		h.sessions[session] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) removeClient(session string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(session, c)
}

func (h *Hub) dropLocked(session string, c *client) {
	set := h.sessions[session]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.sessions, session)
	}
	close(c.send)
	_ = c.conn.Close()
}

func (h *Hub) readPump(session string, c *client) {
	defer h.removeClient(session, c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
