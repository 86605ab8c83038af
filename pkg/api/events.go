package api

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

// Hub fans vesting.Event values out to connected websocket clients. It
// implements vesting.EventBus so Manager can publish directly into it.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub builds an empty Hub. CheckOrigin is left nil, so
// gorilla/websocket's default applies: a request whose Origin header
// names a host other than the request's Host is refused.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		log:      log,
		clients:  make(map[*websocket.Conn]chan []byte),
	}
}

// Publish implements vesting.EventBus. It never blocks the manager: a
// client whose outbound buffer is full is dropped rather than stalling
// the write path that produced the event.
func (h *Hub) Publish(e vesting.Event) {
	payload, err := json.Marshal(map[string]interface{}{"topic": e.Topic(), "data": e.Data()})
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, out := range h.clients {
		select {
		case out <- payload:
		default:
			h.log.WithField("remote", conn.RemoteAddr().String()).Warn("dropping slow websocket client")
			delete(h.clients, conn)
			close(out)
			conn.Close()
		}
	}
}

// handleEvents upgrades the HTTP connection to a websocket and streams
// every published vesting.Event to it as JSON frames until the client
// disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	out := make(chan []byte, 16)
	s.hub.mu.Lock()
	s.hub.clients[conn] = out
	s.hub.mu.Unlock()

	defer func() {
		s.hub.mu.Lock()
		if _, ok := s.hub.clients[conn]; ok {
			delete(s.hub.clients, conn)
			close(out)
		}
		s.hub.mu.Unlock()
		conn.Close()
	}()

	// Drain the client's incoming frames (we don't expect any) purely
	// to detect disconnects via the read error.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for payload := range out {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
