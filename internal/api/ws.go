package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tillpoint/till/internal/sales"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local-only server; the register UI connects from the same host.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans status snapshots out to connected WebSocket clients so the
// register UI refreshes without polling. Every write goes through h.mu:
// broadcasts come from arbitrary goroutines (submit handlers, the drain
// triggers) and gorilla/websocket allows only one concurrent writer per
// connection.
type hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{conns: make(map[*websocket.Conn]bool), logger: logger}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

// write sends snap to one connection. Caller must hold h.mu.
func (h *hub) write(c *websocket.Conn, snap sales.Snapshot) error {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(snap)
}

// send delivers snap to a single registered connection, dropping it on a
// write failure.
func (h *hub) send(c *websocket.Conn, snap sales.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.conns[c] {
		return
	}
	if err := h.write(c, snap); err != nil {
		h.logger.Debug("dropping status subscriber", "error", err)
		delete(h.conns, c)
		c.Close()
	}
}

func (h *hub) broadcast(snap sales.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := h.write(c, snap); err != nil {
			h.logger.Debug("dropping status subscriber", "error", err)
			delete(h.conns, c)
			c.Close()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.add(conn)

	// Current state immediately, then updates on change.
	s.hub.send(conn, s.svc.Status())

	// Reader loop only to detect close; clients never send payloads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.remove(conn)
				return
			}
		}
	}()
}
