package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voicerelay/backend/internal/handler/relay"
	middlewarePkg "github.com/voicerelay/backend/internal/middleware"
)

// maxRequestBytes bounds request bodies; base64 audio chunks are large.
const maxRequestBytes = 25 << 20

// NewRouter wires HTTP routes to the relay handler.
func NewRouter(relayHandler *relay.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxRequestBytes))
	r.Use(middlewarePkg.CORS)

	relayHandler.RegisterRoutes(r)

	return r
}
