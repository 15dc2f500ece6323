package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/accounts"
	"github.com/DoyleJ11/seabattle-server/internal/hub"
)

func SetupRoutes(h *hub.Hub, store accounts.Store, ws http.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/rooms", ListRooms(h, log))
		r.Get("/winners", Winners(store, log))
	})
	return r
}
