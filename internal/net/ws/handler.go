// Package ws owns the WebSocket edge: upgrading connections, pushing the
// initial snapshot, and pumping inbound messages into the intake layer.
package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	server "broadside/server"
	"broadside/server/internal/net/intake"
	"broadside/server/internal/net/proto"
)

type HandlerConfig struct {
	Logger *log.Logger
}

type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// heartbeatReply mirrors the server heartbeat message shape.
type heartbeatReply struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	participantID := r.URL.Query().Get("id")
	if participantID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", participantID, err)
		return
	}

	sub, ships, ok := h.hub.Subscribe(participantID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown participant")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	data, entities, err := h.hub.MarshalSnapshot(ships)
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", participantID, err)
		h.hub.DisconnectSubscriber(participantID, sub, "snapshot_failed")
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.DisconnectSubscriber(participantID, sub, "write_failed")
		return
	}
	h.hub.RecordTelemetryBroadcast(len(data), entities)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.DisconnectSubscriber(participantID, sub, "read_failed")
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", participantID, err)
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(participantID, now, msg.SentAt)
			if !ok {
				return
			}
			reply := heartbeatReply{
				Ver:        server.ProtocolVersion,
				Type:       proto.TypeHeartbeat,
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			data, err := json.Marshal(reply)
			if err != nil {
				h.logger.Printf("failed to marshal heartbeat for %s: %v", participantID, err)
				continue
			}
			if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
				h.hub.DisconnectSubscriber(participantID, sub, "write_failed")
				return
			}
			continue
		}

		// Protocol rejections are silent toward the client: a command that
		// fails to stage simply produces no broadcast. The reason only feeds
		// logs and counters.
		if _, ok, reason := intake.StageClientCommand(intake.CommandContext{Hub: h.hub, Now: time.Now}, participantID, msg); !ok {
			if reason == server.CommandRejectInvalidAction {
				h.logger.Printf("discarding malformed message from %s: type=%q", participantID, msg.Type)
			}
		}
	}
}
