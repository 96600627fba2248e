package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/relay/agent/contract"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Sessions are authenticated upstream; the engine itself accepts any
	// origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// inboundMessage is one client frame on the agent socket.
type inboundMessage struct {
	Type    string         `json:"type"`
	Command string         `json:"command,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// outboundMessage is one server frame. Exactly one of the payload fields is
// set depending on Type.
type outboundMessage struct {
	Type     string              `json:"type"`
	Message  string              `json:"message,omitempty"`
	UserID   int64               `json:"user_id,omitempty"`
	Data     *contractx.Response `json:"data,omitempty"`
	Services []string            `json:"services,omitempty"`
	Status   map[string]any      `json:"status,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleAgentSocket runs one user's websocket session. Each command frame
// is processed synchronously on the session goroutine; a disconnect cancels
// whatever command is in flight.
func (s *Server) handleAgentSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := log.With().Int64("user_id", userID).Logger()
	logger.Info().Msg("agent session opened")
	defer logger.Info().Msg("agent session closed")

	agent, err := s.manager.GetOrCreate(ctx, userID, nil)
	if err != nil {
		s.send(conn, outboundMessage{Type: "error", Error: "agent unavailable"})
		return
	}

	s.send(conn, outboundMessage{
		Type:    "welcome",
		UserID:  userID,
		Message: "Connected to your personal agent. Send a command, or 'help' to see what I can do.",
	})

	// Reads run on their own goroutine so a dropped connection cancels the
	// session context while a command is still in flight. All writes stay on
	// the session goroutine.
	frames := make(chan []byte)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case frames <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	for raw := range frames {
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.send(conn, outboundMessage{Type: "error", Error: "invalid JSON message"})
			continue
		}

		switch msg.Type {
		case "command":
			s.handleCommand(ctx, conn, agent.UserID(), msg)
		case "ping":
			s.send(conn, outboundMessage{Type: "pong"})
		default:
			s.send(conn, outboundMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

// handleCommand answers the fixed meta intents from agent introspection and
// routes everything else through the manager.
func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, userID int64, msg inboundMessage) {
	command := strings.TrimSpace(msg.Command)
	if command == "" {
		s.send(conn, outboundMessage{Type: "error", Error: "empty command"})
		return
	}

	agent, err := s.manager.GetOrCreate(ctx, userID, nil)
	if err == nil {
		switch strings.ToLower(command) {
		case "services":
			s.send(conn, outboundMessage{Type: "services", Services: agent.AvailableServices()})
			return
		case "status":
			s.send(conn, outboundMessage{Type: "status", Status: agent.Status()})
			return
		}
	}

	resp := s.manager.RouteCommand(ctx, userID, command, msg.Context)
	kind := "response"
	if resp.Action == "help" {
		kind = "help"
	}
	s.send(conn, outboundMessage{Type: kind, UserID: userID, Data: &resp})
}

func (s *Server) send(conn *websocket.Conn, msg outboundMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
	}
}
