package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/safedistance/internal/app"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/pipeline"
)

const (
	// clientBuffer is the number of pending messages per client. A client
	// that falls further behind misses frames.
	clientBuffer = 4
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// overlayMessage is sent to clients for every processed frame.
type overlayMessage struct {
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Result    pipeline.Result `json:"result"`
}

// OverlayHub broadcasts per-frame results (draw commands, state, spans) to
// WebSocket clients. It is registered as a session sink.
type OverlayHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewOverlayHub creates an OverlayHub with no clients.
func NewOverlayHub() *OverlayHub {
	return &OverlayHub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Publish implements app.Sink. It never blocks the session.
func (h *OverlayHub) Publish(f *app.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(overlayMessage{
		Seq:       f.Seq,
		Timestamp: f.Timestamp.UnixMilli(),
		Result:    f.Result,
	})
	if err != nil {
		monitoring.Logf("overlay encode error: %v", err)
		return
	}

	for _, send := range h.clients {
		select {
		case send <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *OverlayHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *OverlayHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, send := range h.clients {
		close(send)
		delete(h.clients, conn)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *OverlayHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = send
	h.mu.Unlock()

	defer h.remove(conn)

	go h.write(conn, send)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *OverlayHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		close(send)
		delete(h.clients, conn)
	}
}

// write drains send to conn until the channel is closed.
func (h *OverlayHub) write(conn *websocket.Conn, send <-chan []byte) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}
