package http

import (
	"net/http"
	"time"

	httpmw "github.com/chatwave/dispatch-service/internal/transport/http/middleware"
	"github.com/chatwave/dispatch-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, identity httpmw.Identity, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint does its own credential check before the upgrade
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(identity))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/messages/{userId}", h.GetHistory)
		pr.Get("/inbox", h.GetInbox)
		pr.Get("/presence/{userId}", h.GetPresence)
		pr.Delete("/cache/users/{userId}", h.InvalidateUserCache)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
