package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/live"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/web"
	middlewarePkg "github.com/zhouzirui/gemini-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. submitter may be nil when
// no completion provider is configured; gatherer may be nil to skip /metrics.
func NewRouter(chatSvc *chatService.Service, submitter *chatService.Submitter, gatherer prometheus.Gatherer, logger *logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	web.RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"completion": submitter != nil,
		})
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	chatHandler := chat.New(chatSvc, submitter)
	liveHandler := live.NewWebSocketHandler(chatSvc, logger)

	var streamHandler *stream.Handler
	if submitter != nil {
		streamHandler = stream.New(submitter, logger)
	}

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)

		api.Get("/stream", func(w http.ResponseWriter, r *http.Request) {
			prompt := r.URL.Query().Get("prompt")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if prompt == "" {
				utils.RespondError(w, http.StatusBadRequest, "prompt query parameter is required")
				return
			}

			// Errors after the SSE headers are already reported in-stream.
			if err := streamHandler.HandleStreamRequest(r.Context(), w, prompt); errors.Is(err, stream.ErrStreamingUnsupported) {
				utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
			}
		})
	})

	return r
}
