package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/xhad/chatexport/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // Page-side scripts connect from the chat origin
	},
}

type WSServer struct {
	bridge *Bridge
	logger zerolog.Logger
}

func NewWSServer(bridge *Bridge, logger *zerolog.Logger) *WSServer {
	s := &WSServer{bridge: bridge, logger: zerolog.Nop()}
	if logger != nil {
		s.logger = *logger
	}
	return s
}

// Handler serves the bridge on /ws and a health check on /health.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		pending sync.WaitGroup
	)
	defer pending.Wait()

	respond := func(result models.Result) {
		defer pending.Done()
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(result); err != nil {
			s.logger.Warn().Err(err).Msg("error sending result")
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("error reading message")
			}
			cancel()
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Debug().Err(err).Msg("error unmarshaling request")
			pending.Add(1)
			respond(models.Result{Success: false, Error: "invalid request: " + err.Error()})
			continue
		}

		pending.Add(1)
		s.bridge.Dispatch(ctx, req, respond)
	}
}
