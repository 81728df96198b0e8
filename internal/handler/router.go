package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pitchlive-ai/pitchlive/backend/internal/handler/live"
	middlewarePkg "github.com/pitchlive-ai/pitchlive/backend/internal/middleware"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
	"github.com/pitchlive-ai/pitchlive/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	liveHandler := live.New(eng)
	wsHandler := live.NewWebSocketHandler(eng)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		liveHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
