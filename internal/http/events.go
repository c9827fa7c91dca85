package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/catalog"
	"github.com/Clark-Hu/movie-discovery/internal/metrics"
	"github.com/Clark-Hu/movie-discovery/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Event stream message types.
const (
	MessageCatalog = "catalog"
	MessageSession = "session"
)

type streamMessage struct {
	Type    string         `json:"type"`
	Slot    string         `json:"slot,omitempty"`
	Session *session.State `json:"session,omitempty"`
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOriginList() {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.logger.Warn("http: websocket origin rejected", zap.String("origin", origin))
	return false
}

// handleEvents streams catalog slot changes and session state to one browser tab.
// Slow clients lose messages rather than stalling the stores.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("http: websocket upgrade failed", zap.Error(err))
		return
	}
	metrics.EventStreamClients.Inc()
	defer metrics.EventStreamClients.Dec()

	send := make(chan streamMessage, sendBuffer)
	offer := func(msg streamMessage) {
		select {
		case send <- msg:
		default:
		}
	}
	unsubCatalog := s.app.Catalog.Subscribe(func(ev catalog.Event) {
		offer(streamMessage{Type: MessageCatalog, Slot: ev.Slot})
	})
	defer unsubCatalog()
	unsubSession := s.app.Session.Subscribe(func(st session.State) {
		offer(streamMessage{Type: MessageSession, Session: &st})
	})
	defer unsubSession()

	initial := s.app.Session.State()
	offer(streamMessage{Type: MessageSession, Session: &initial})

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)
	s.writeStream(conn, send, closed)
}

func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *Server) writeStream(conn *websocket.Conn, send <-chan streamMessage, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-closed:
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("http: websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
