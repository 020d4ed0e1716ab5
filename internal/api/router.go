// Package api exposes the DQI engine and its store over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/dqi-engine/internal/events"
	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/store"
)

// Scorer computes an analysis from a raw payload. *engine.Engine satisfies it.
type Scorer interface {
	ComputeFromRaw(ctx context.Context, raw model.RawProperty) (*model.DQIAnalysis, error)
}

// Deps are the collaborators the router serves. Publisher and Metrics are optional.
type Deps struct {
	Scorer      Scorer
	Store       store.Store
	Publisher   events.Publisher
	Metrics     http.Handler
	CORSOrigins []string
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	h := &Handler{scorer: d.Scorer, store: d.Store, publisher: d.Publisher}

	r.Get("/health", h.Health)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/dqi", h.ScoreRaw)

		r.Put("/properties/{id}", h.PutProperty)
		r.Get("/properties/{id}", h.GetProperty)
		r.Post("/properties/{id}/dqi", h.ScoreStored)
		r.Get("/properties/{id}/analyses", h.ListAnalyses)

		r.Get("/analyses/{id}", h.GetAnalysis)
	})

	return r
}
