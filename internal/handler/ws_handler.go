package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rekew/web-dev-project/internal/config"
	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/hub"
	"github.com/rekew/web-dev-project/internal/service"
	"github.com/rekew/web-dev-project/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and decodes the tagged event protocol
// before anything reaches handler logic.
type WSHandler struct {
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

// NewWSHandler creates a websocket handler.
func NewWSHandler(svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{service: svc, wsCfg: wsCfg}
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// starts its pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), conn, h.wsCfg)

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.handleDisconnect)
}

// handleMessage decodes one inbound frame into its event struct and
// dispatches it. Decode failures answer the sender and go no further.
func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.Send(domain.NewErrorEvent("Invalid message format"))
		return
	}

	ctx := context.Background()
	l := log.L().With().
		Str(log.FieldClientID, client.ID()).
		Str(log.FieldEvent, base.Type).
		Logger()
	ctx = log.WithLogger(ctx, l)

	var err error
	switch base.Type {
	case domain.EventAuth:
		var ev domain.AuthEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleAuth(ctx, client, &ev)
		}

	case domain.EventHeartbeat:
		var ev domain.HeartbeatEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleHeartbeat(ctx, &ev)
		}

	case domain.EventChatCreate:
		var ev domain.ChatCreateEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleChatCreate(ctx, client, &ev)
		}

	case domain.EventMessageCreate:
		var ev domain.MessageCreateEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleMessageCreate(ctx, client, &ev)
		}

	case domain.EventGetOnlineUsers:
		var ev domain.GetOnlineUsersEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleGetOnlineUsers(ctx, client, &ev)
		}

	case domain.EventSearchUsers:
		var ev domain.SearchUsersEvent
		if decodeEvent(client, message, base.Type, &ev) {
			err = h.service.HandleSearchUsers(ctx, client, &ev)
		}

	default:
		client.Send(domain.NewErrorEvent("Unknown event type"))
		return
	}

	if err != nil {
		l.Debug().Err(err).Msg("event handling failed")
	}
}

// decodeEvent unmarshals one inbound frame into its event struct. Every
// decode failure is answered the same way: an in-band error naming the
// event type, and the frame goes no further.
func decodeEvent(client *hub.Client, message []byte, eventType string, v interface{}) bool {
	if err := json.Unmarshal(message, v); err != nil {
		client.Send(domain.NewErrorEvent("Invalid " + eventType + " event"))
		return false
	}
	return true
}

// handleDisconnect fires when a read pump exits, for explicit and
// implicit disconnects alike.
func (h *WSHandler) handleDisconnect(client *hub.Client) {
	if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
		log.L().Warn().
			Str(log.FieldClientID, client.ID()).
			Err(err).
			Msg("disconnect handling failed")
	}
}
