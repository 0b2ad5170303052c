package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/expert-panel/backend/internal/service/chat"
	"github.com/zhouzirui/expert-panel/backend/pkg/utils"
)

// Handler serves whole (non-streamed) turns and transcript lookups.
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger.Named("chat_handler")}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/messages", h.handleSendMessage)
	r.Get("/chat/messages", h.handleListMessages)
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.SendMessage(r.Context(), payload.Content, payload.SessionID)
	if errors.Is(err, chatService.ErrEmptyContent) {
		utils.RespondError(w, http.StatusBadRequest, "Message content is required")
		return
	}
	if err != nil {
		h.logger.Error("turn failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	messages, err := h.chatSvc.Messages(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load messages", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"messages":  messages,
		"sessionId": sessionID,
	})
}
