package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)

		// History documents.
		r.Route("/documents", func(r chi.Router) {
			if s.cfg.Server.RateLimit.Enabled {
				r.Use(s.rateLimitMiddleware(
					s.cfg.Server.RateLimit.Public,
				))
			}

			r.Get("/", s.handleListDocuments)
			r.Get("/{doc}", s.handleGetDocument)
			r.Get("/{doc}/data.js", s.handleGetDocumentJS)
			r.Get("/{doc}/suites", s.handleListSuites)
			r.Get("/{doc}/suites/{suite}/series/{measurement}",
				s.handleGetSeries)

			// Appends are the only mutation and carry their own
			// auth and rate limit tier.
			r.Group(func(r chi.Router) {
				r.Use(s.requireWriteAuth)

				if s.cfg.Server.RateLimit.Enabled {
					r.Use(s.rateLimitMiddleware(
						s.cfg.Server.RateLimit.Write,
					))
				}

				r.Post("/{doc}/suites/{suite}/entries",
					s.handleAppendEntry)
			})
		})

		// Index endpoints (when indexing is enabled).
		if s.indexStore != nil {
			r.Route("/index", func(r chi.Router) {
				if s.cfg.Server.RateLimit.Enabled {
					r.Use(s.rateLimitMiddleware(
						s.cfg.Server.RateLimit.Public,
					))
				}

				r.Get("/suites", s.handleIndexSuites)
				r.Get("/suites/{suite}/measurements",
					s.handleIndexMeasurements)
				r.Get("/series", s.handleIndexSeries)
			})
		}
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the server config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}

	origins := s.cfg.Server.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
