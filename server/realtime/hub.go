package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/logger"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	LOCATION_UPDATE_TYPE = "location_update"

	WRITE_TIMEOUT     = 5 * time.Second
	MAX_PAYLOAD_BYTES = 64 << 10
)

var logg = logger.NewLogger()

type frame struct {
	Type string `json:"type"`
}

type session struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
	if err != nil {
		return err
	}
	return websocket.Message.Send(s.conn, msg)
}

// Hub relays location updates between every connected session.
// Sessions are not authenticated nor scoped to a guardian.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*session)}
}

func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	conn.MaxPayloadBytes = MAX_PAYLOAD_BYTES
	defer conn.Close()

	s := &session{id: uuid.NewString(), conn: conn}
	if !h.register(s) {
		return
	}
	defer h.unregister(s)

	for {
		var msg string
		err := websocket.Message.Receive(conn, &msg)
		if err != nil {
			h.logDebugf(s, "disconnected: %v", err)
			return
		}

		incoming := frame{}
		err = json.Unmarshal([]byte(msg), &incoming)
		if err != nil {
			h.logDebugf(s, "dropping malformed frame: %v", err)
			continue
		}

		if incoming.Type != LOCATION_UPDATE_TYPE {
			h.logDebugf(s, "dropping frame with type %q", incoming.Type)
			continue
		}

		h.Broadcast(s.id, msg)
	}
}

// Broadcast sends msg verbatim to every session except the sender.
// A failed write only drops the frame for that session.
func (h *Hub) Broadcast(senderID string, msg string) {
	h.mu.RLock()
	recipients := make([]*session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id != senderID {
			recipients = append(recipients, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range recipients {
		err := s.send(msg)
		if err != nil {
			h.logDebugf(s, "dropping frame, write failed: %v", err)
		}
	}
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close disconnects every session & rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.conn.Close()
	}

	if len(sessions) > 0 {
		logg.Infof("Closed %v realtime session(s)", len(sessions))
	}
}

func (h *Hub) register(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.sessions[s.id] = s
	h.logDebugf(s, "connected")
	return true
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.id)
}

func (h *Hub) logDebugf(s *session, template string, args ...interface{}) {
	prefix := colors.Blue(fmt.Sprintf("[session %v] ", s.id[:8]))
	logg.Debugf(prefix+template, args...)
}
