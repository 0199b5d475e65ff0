package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type session struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger log.Log
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// offer queues frame without blocking; a full buffer drops it.
func (s *session) offer(frame []byte) bool {
	select {
	case <-s.done:
		return false
	case s.send <- frame:
		return true
	default:
		return false
	}
}

type hub struct {
	mx       sync.RWMutex
	sessions map[uuid.UUID]*session
	dropped  atomic.Uint64
	logger   log.Log
}

func newHub(logger log.Log) *hub {
	return &hub{sessions: make(map[uuid.UUID]*session), logger: logger}
}

func (h *hub) add(s *session) int {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.sessions[s.id] = s
	return len(h.sessions)
}

func (h *hub) remove(id uuid.UUID) int {
	h.mx.Lock()
	defer h.mx.Unlock()
	delete(h.sessions, id)
	return len(h.sessions)
}

func (h *hub) len() int {
	h.mx.RLock()
	defer h.mx.RUnlock()
	return len(h.sessions)
}

func (h *hub) broadcast(frame []byte) {
	h.mx.RLock()
	defer h.mx.RUnlock()
	for _, s := range h.sessions {
		if !s.offer(frame) {
			h.dropped.Add(1)
		}
	}
}

func (h *hub) closeAll() {
	h.mx.Lock()
	sessions := h.sessions
	h.sessions = make(map[uuid.UUID]*session)
	h.mx.Unlock()

	for _, s := range sessions {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
			time.Now().Add(time.Second))
		s.close()
	}
}

type errorFrame struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	sess := &session{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, s.config.SessionBuffer),
		done: make(chan struct{}),
	}
	sess.logger = s.logger.With(log.Stringer("session_id", sess.id))
	total := s.hub.add(sess)
	sess.logger.Info("session connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int("sessions", total))

	go s.writeLoop(sess)
	s.readLoop(sess)

	sess.close()
	sess.logger.Info("session disconnected", log.Int("sessions", s.hub.remove(sess.id)))
}

// readLoop submits every request envelope the client sends. Malformed
// envelopes are answered with an error frame and the session stays open.
func (s *Server) readLoop(sess *session) {
	sess.conn.SetReadLimit(s.config.MaxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Debug("session read failed", log.Error(err))
			}
			return
		}

		req, err := message.DecodeRequest(payload)
		if err == nil {
			err = s.kernel.Submit(req)
		}
		if err != nil {
			sess.logger.Debug("session request rejected", log.Error(err))
			frame, _ := json.Marshal(errorFrame{Kind: "error", Error: err.Error()})
			if !sess.offer(frame) {
				s.hub.dropped.Add(1)
			}
		}
	}
}

func (s *Server) writeLoop(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer sess.close()

	for {
		select {
		case <-sess.done:
			return
		case frame := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					sess.logger.Debug("session write failed", log.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
