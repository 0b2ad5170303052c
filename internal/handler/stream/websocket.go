package stream

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/expert-panel/backend/internal/service/chat"
)

// handleWebSocket treats every text frame as a turn request and answers with
// the same typed frames as the SSE endpoint, one JSON object per message.
// Invalid requests get an error frame; the connection stays open.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sink := chatService.EventSinkFunc(func(e chatService.Event) error {
		return conn.WriteJSON(e)
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req turnRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.WriteJSON(chatService.Event{Type: chatService.EventError, Error: "invalid request body"}); err != nil {
				return
			}
			continue
		}
		if strings.TrimSpace(req.Content) == "" {
			if err := conn.WriteJSON(chatService.Event{Type: chatService.EventError, Error: "Message content is required"}); err != nil {
				return
			}
			continue
		}

		if err := h.chatSvc.StreamMessage(ctx, req.Content, req.SessionID, sink); err != nil {
			h.logger.Error("websocket turn aborted", zap.Error(err))
			if err := conn.WriteJSON(chatService.ErrorEvent()); err != nil {
				return
			}
		}
	}
}
