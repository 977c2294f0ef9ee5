package remote

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type wsMessage struct {
	Type  string    `json:"type"`
	State *stateDTO `json:"state,omitempty"`
	Error string    `json:"error,omitempty"`
}

// handleWS streams a state snapshot on connect and after every engine
// event. Clients only listen; commands go through the REST routes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("remote: websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.service.Subscribe()
	defer s.service.Unsubscribe(sub)

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := s.pushState(conn); err != nil {
		return
	}
	for {
		var err error
		select {
		case <-sub.StateChanged:
			err = s.pushState(conn)
		case <-sub.TrackChanged:
			err = s.pushState(conn)
		case <-sub.MetadataChanged:
			err = s.pushState(conn)
		case <-sub.QueueChanged:
			err = s.pushState(conn)
		case <-sub.ModeChanged:
			err = s.pushState(conn)
		case e := <-sub.Error:
			err = write(conn, wsMessage{Type: "error", Error: e.Message()})
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case <-sub.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed"))
			return
		case <-gone:
			return
		}
		if err != nil {
			logger.Debug("remote: websocket write", zap.Error(err))
			return
		}
	}
}

func (s *Server) pushState(conn *websocket.Conn) error {
	st := snapshot(s.service)
	return write(conn, wsMessage{Type: "state", State: &st})
}

func write(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// readPump drains the connection so control frames are handled, and closes
// gone once the client disconnects.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("remote: websocket closed", zap.Error(err))
			}
			return
		}
	}
}
