package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/realtime"
)

// handleGlobalWS subscribes a client to board-wide events.
func (s *Server) handleGlobalWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, realtime.GlobalScope)
}

// handleProjectWS subscribes a client to one project's events.
func (s *Server) handleProjectWS(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	s.serveWS(w, r, realtime.ProjectScope(id))
}

// serveWS admits one WebSocket client: register under its scope, confirm
// with a connection greeting, then echo inbound text frames until the
// transport closes. The scope is fixed for the connection's lifetime; the
// receive loop owns the Disconnect.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, scope realtime.Scope) {
	log := logging.WithComponent("server")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WebSocket upgrade error", slog.Any("error", err))
		return
	}

	client := realtime.NewClient(conn)
	s.registry.Connect(client, scope)
	defer func() {
		s.registry.Disconnect(client, scope)
		_ = client.Close()
		log.Info("WebSocket client disconnected",
			slog.String("client_id", client.ID),
			slog.String("scope", scope.String()))
	}()

	log.Info("WebSocket client connected",
		slog.String("client_id", client.ID),
		slog.String("scope", scope.String()),
		slog.String("remote", r.RemoteAddr))

	if err := s.registry.SendTo(client, realtime.NewGreeting(scope)); err != nil {
		log.Warn("WebSocket greeting failed", slog.Any("error", err))
		return
	}

	for {
		text, err := client.ReadText()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", slog.Any("error", err))
			}
			return
		}
		// Diagnostic echo: frames are reflected verbatim, no validation.
		if err := s.registry.SendTo(client, realtime.NewEcho(text)); err != nil {
			return
		}
	}
}
