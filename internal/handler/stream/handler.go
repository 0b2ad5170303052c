package stream

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/expert-panel/backend/internal/service/chat"
	"github.com/zhouzirui/expert-panel/backend/pkg/utils"
)

// Handler streams turns to the browser over Server-Sent Events or a WebSocket.
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the stream handler.
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.Named("stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the streaming routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleSSE)
	r.Get("/chat/ws", h.handleWebSocket)
}

type turnRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

// handleSSE validates the request as plain JSON, then switches to an event
// stream. Once headers are out, failures become a terminal error frame.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message content is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := chatService.EventSinkFunc(func(e chatService.Event) error {
		return utils.WriteSSE(w, flusher, e)
	})
	if err := h.chatSvc.StreamMessage(r.Context(), req.Content, req.SessionID, sink); err != nil {
		h.logger.Error("streamed turn aborted", zap.Error(err))
		_ = utils.WriteSSE(w, flusher, chatService.ErrorEvent())
	}
}
