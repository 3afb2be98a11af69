package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/newslens/internal/api"
	apiMiddleware "github.com/phrazzld/newslens/internal/api/middleware"
	"github.com/phrazzld/newslens/internal/api/shared"
	nlotel "github.com/phrazzld/newslens/internal/platform/otel"
)

// setupRouter creates the router with its middleware and routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(nlotel.HTTPMiddleware("newslens"))
	r.Use(apiMiddleware.TraceMiddleware)

	analysisHandler := api.NewAnalysisHandler(app.analysisService, app.logger)
	r.Route("/api", analysisHandler.Routes)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
	})

	return r
}
