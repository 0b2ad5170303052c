package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/expert-panel/backend/internal/handler/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/handler/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/handler/stream"
	"github.com/zhouzirui/expert-panel/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/expert-panel/backend/internal/middleware"
	personaModel "github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	chatService "github.com/zhouzirui/expert-panel/backend/internal/service/chat"
	"github.com/zhouzirui/expert-panel/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, logger)
	streamHandler := stream.New(chatSvc, logger)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	return r
}
