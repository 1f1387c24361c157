package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/therapist-ai/backend/internal/handler/chat"
	"github.com/zhouzirui/therapist-ai/backend/internal/handler/persona"
	"github.com/zhouzirui/therapist-ai/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/therapist-ai/backend/internal/middleware"
	personaModel "github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
	chatService "github.com/zhouzirui/therapist-ai/backend/internal/service/chat"
	speechService "github.com/zhouzirui/therapist-ai/backend/internal/service/speech"
	"github.com/zhouzirui/therapist-ai/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil when
// speech credentials are not configured.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, responder chatService.Responder, speechSvc *speechService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Count(),
		})
	})

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, responder)

	var speechAPI speech.SpeechService
	if speechSvc != nil {
		speechAPI = speechSvc
	}
	speechHandler := speech.New(speechAPI, chatHandler)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api, speechHandler.RegisterSessionRoutes)
		speechHandler.RegisterRoutes(api)
	})

	return r
}
