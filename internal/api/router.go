// Package api serves a local preview of the published datasets and lets a
// developer trigger pipeline runs over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hoanghai1803/folio/internal/api/handlers"
	"github.com/hoanghai1803/folio/internal/config"
)

// NewRouter creates the preview router. A nil history disables the run
// endpoints, which then answer 503.
func NewRouter(builder handlers.Builder, history handlers.RunHistory, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/articles", handlers.GetDataset(cfg.Articles.Output))
		api.Get("/repos", handlers.GetDataset(cfg.Repos.Output))

		api.Get("/runs", handlers.GetRuns(history))
		api.Get("/runs/latest", handlers.GetLatestRun(history))

		api.Post("/build/{pipeline}", handlers.Build(builder))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}
