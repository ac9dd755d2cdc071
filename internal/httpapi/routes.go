package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/hub"
	"github.com/flashdeck/backend/internal/store"
	"github.com/flashdeck/backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, repo *store.UnitRepo, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", CreateSession(h, log))
	r.Get("/sessions/{code}/export", ExportDeck(h, log))
	r.Post("/sessions/{code}/import", ImportDeck(h, log))

	r.Get("/units", ListUnits(repo, log))
	r.Post("/units", SaveUnit(h, log))
	r.Get("/units/{id}", GetUnit(repo, log))
	r.Delete("/units/{id}", DeleteUnit(repo, log))
	r.Post("/units/{id}/load", LoadUnitIntoSession(h, log))

	r.Get("/ws", ws.Handler(h))
	r.Get("/healthz", Healthz)
	return r
}
